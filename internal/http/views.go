package http

import (
	"time"

	"github.com/shopspring/decimal"

	"lifebalance/internal/core"
	"lifebalance/internal/section"
	"lifebalance/internal/shell"
)

// pageData is the root value every template renders from. Only the view of
// the active section is populated.
type pageData struct {
	User   *core.User
	Active shell.Section
	Nav    []navItem
	Quick  []shell.QuickAction

	// Auth form, shown while logged out
	Register  bool
	AuthError string
	AuthName  string
	AuthEmail string

	Dashboard    *shell.Overview
	Financial    *financialView
	Professional *professionalView
	Wellness     *wellnessView

	// Errors maps form field names to their messages.
	Errors map[string]string
}

type navItem struct {
	Section shell.Section
	Label   string
	Active  bool
}

type filterOption struct {
	Value  section.FinancialFilter
	Label  string
	Active bool
}

type bar struct {
	Label  string
	Amount decimal.Decimal
	Width  int
}

type monthBars struct {
	Month        string
	Income       decimal.Decimal
	Expenses     decimal.Decimal
	IncomeWidth  int
	ExpenseWidth int
}

type financialView struct {
	Composing  bool
	Draft      core.FinancialDraft
	Types      []core.FinancialType
	Summary    core.FinancialSummary
	Records    []core.FinancialRecord
	Total      int
	Filter     section.FinancialFilter
	Filters    []filterOption
	Categories []bar
	Monthly    []monthBars
}

type professionalView struct {
	Composing bool
	Draft     core.ProfessionalDraft
	Types     []core.ProfessionalType
	Summary   core.ProfessionalSummary
	Records   []core.ProfessionalRecord
	Total     int
}

type wellnessView struct {
	Composing    bool
	Draft        core.WellnessDraft
	Types        []core.WellnessType
	Summary      core.WellnessSummary
	Records      []core.WellnessRecord
	Total        int
	ShowDuration bool
}

// viewOptions carries the per-request inputs of buildPage.
type viewOptions struct {
	Filter section.FinancialFilter
	Errors map[string]string
}

func buildPage(ws *shell.Workspace, now time.Time, opts viewOptions) *pageData {
	active := ws.Active()
	pd := &pageData{
		User:   ws.Session.User(),
		Active: active,
		Quick:  shell.QuickActions(),
		Errors: opts.Errors,
	}
	for _, s := range shell.Sections() {
		pd.Nav = append(pd.Nav, navItem{Section: s, Label: s.Label(), Active: s == active})
	}
	if pd.User == nil {
		return pd
	}

	switch active {
	case shell.Dashboard:
		o := ws.Overview(now)
		pd.Dashboard = &o
	case shell.Financial:
		pd.Financial = buildFinancial(ws.Financial, opts.Filter)
	case shell.Professional:
		records := ws.Professional.Records()
		pd.Professional = &professionalView{
			Composing: ws.Professional.Mode() == section.Composing,
			Draft:     ws.Professional.Draft(),
			Types:     core.ProfessionalTypes(),
			Summary:   core.SummarizeProfessional(records),
			Records:   records,
			Total:     len(records),
		}
	case shell.Wellness:
		records := ws.Wellness.Records()
		draft := ws.Wellness.Draft()
		pd.Wellness = &wellnessView{
			Composing:    ws.Wellness.Mode() == section.Composing,
			Draft:        draft,
			Types:        core.WellnessTypes(),
			Summary:      core.SummarizeWellness(records),
			Records:      section.Head(records, section.ListLimit),
			Total:        len(records),
			ShowDuration: draft.ShowsDuration(),
		}
	}
	return pd
}

func buildFinancial(c *section.Financial, filter section.FinancialFilter) *financialView {
	records := c.Records()
	summary := core.SummarizeFinancial(records)
	if filter == "" {
		filter = section.FilterAll
	}
	v := &financialView{
		Composing: c.Mode() == section.Composing,
		Draft:     c.Draft(),
		Types:     core.FinancialTypes(),
		Summary:   summary,
		Records:   section.FilterFinancial(records, filter, section.ListLimit),
		Total:     len(records),
		Filter:    filter,
	}

	v.Filters = append(v.Filters, filterOption{Value: section.FilterAll, Label: "Todos", Active: filter == section.FilterAll})
	for _, t := range core.FinancialTypes() {
		f := section.FinancialFilter(t)
		v.Filters = append(v.Filters, filterOption{Value: f, Label: t.Label(), Active: filter == f})
	}

	if len(summary.ByCategory) > 0 {
		largest := summary.ByCategory[0].Amount
		for _, c := range summary.ByCategory {
			v.Categories = append(v.Categories, bar{Label: c.Name, Amount: c.Amount, Width: barWidth(c.Amount, largest)})
		}
	}

	largest := decimal.Zero
	for _, m := range summary.Monthly {
		largest = decimal.Max(largest, m.Income, m.Expenses)
	}
	for _, m := range summary.Monthly {
		v.Monthly = append(v.Monthly, monthBars{
			Month:        m.Month,
			Income:       m.Income,
			Expenses:     m.Expenses,
			IncomeWidth:  barWidth(m.Income, largest),
			ExpenseWidth: barWidth(m.Expenses, largest),
		})
	}
	return v
}

// fieldMessages maps validation failures to per-field messages. The first
// failure of a field wins.
func fieldMessages(fes []*core.FieldError) map[string]string {
	out := make(map[string]string, len(fes))
	for _, fe := range fes {
		if _, ok := out[fe.Field]; !ok {
			out[fe.Field] = fe.Message()
		}
	}
	return out
}
