package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lifebalance/internal/cli"
	"lifebalance/internal/log"
	"lifebalance/internal/storage"
)

func newInspectCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "inspect [device] [key]",
		Short: "Browse stored devices, their keys and values",
		Long: "Without arguments, lists the devices with stored data. With a device, " +
			"lists its keys. With a device and a key, prints the stored JSON, " +
			"optionally narrowed by a JSONPath expression (--path '$[0].amount').",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger := cli.SetupLogger(cfg).WithComponent(log.ComponentCLI)

			store, err := cli.OpenStore(cmd.Context(), logger, cfg)
			if err != nil {
				return err
			}
			defer store.Cleanup()

			return inspect(cmd.Context(), store.Store, cmd.OutOrStdout(), args, path)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "JSONPath applied to the stored value")
	return cmd
}

func inspect(ctx context.Context, kv storage.KV, out io.Writer, args []string, path string) error {
	switch len(args) {
	case 0:
		devices, err := kv.Namespaces(ctx)
		if err != nil {
			return err
		}
		for _, d := range devices {
			fmt.Fprintln(out, d)
		}
		return nil
	case 1:
		keys, err := kv.Keys(ctx, args[0])
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return fmt.Errorf("device %q has no stored keys", args[0])
		}
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	}

	device, key := args[0], args[1]
	blob, ok, err := kv.GetItem(ctx, device, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("key %q not found for device %q", key, device)
	}
	if path == "" {
		fmt.Fprintln(out, cli.PrettyJSON(blob))
		return nil
	}
	result, err := cli.EvaluatePath(blob, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, result)
	return nil
}
