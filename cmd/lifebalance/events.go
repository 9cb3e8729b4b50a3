package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lifebalance/internal/amqp"
	"lifebalance/internal/cli"
	"lifebalance/internal/log"
)

func newEventsCmd() *cobra.Command {
	var section string

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Work with record-created events on the broker",
	}

	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Print record-created events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if !cfg.EventsEnabled() {
				return errors.New("AMQP_URL is not set")
			}
			logger := cli.SetupLogger(cfg).WithComponent(log.ComponentCLI)

			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := cli.SignalContext(cmd.Context())
			defer stop()

			err = client.ConsumeRecordEvents(ctx, printEvent(cmd.OutOrStdout(), section))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	tailCmd.Flags().StringVar(&section, "section", "", "only show events of this section")
	eventsCmd.AddCommand(tailCmd)
	return eventsCmd
}

// printEvent writes each message as one JSON line.
func printEvent(out io.Writer, section string) func(*amqp.RecordCreatedMessage) error {
	return func(msg *amqp.RecordCreatedMessage) error {
		if section != "" && msg.Section != section {
			return nil
		}
		b, err := msg.ToJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
}
