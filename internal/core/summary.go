package core

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// MonthsInOverview is how many months the financial overview keeps.
const MonthsInOverview = 6

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthOverview is the income and expense total for one YYYY-MM month.
type MonthOverview struct {
	Month    string
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// FinancialSummary aggregates a financial collection.
type FinancialSummary struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	TotalInvestments decimal.Decimal
	Balance          decimal.Decimal // income minus expenses
	ByCategory       []CategoryAmount
	Monthly          []MonthOverview
}

// ProfessionalSummary aggregates a professional collection.
type ProfessionalSummary struct {
	Courses         int
	Networking      int
	Skills          int
	AverageProgress int
}

// WellnessSummary aggregates a wellness collection.
type WellnessSummary struct {
	Meditations      int
	Gratitude        int
	Reflections      int
	AverageMood      float64
	MinutesMeditated int
}

// SummarizeFinancial totals the collection per type. ByCategory holds the
// expense distribution, largest first; Monthly holds the most recent months
// present in the data, oldest first.
func SummarizeFinancial(records []FinancialRecord) FinancialSummary {
	s := FinancialSummary{
		TotalIncome:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
		TotalInvestments: decimal.Zero,
	}
	byCat := map[string]decimal.Decimal{}
	byMonth := map[string]*MonthOverview{}

	for _, r := range records {
		month := ""
		if len(r.Date) >= 7 {
			month = r.Date[:7]
		}
		m := byMonth[month]
		if m == nil && month != "" {
			m = &MonthOverview{Month: month, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[month] = m
		}
		switch r.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(r.Amount)
			if m != nil {
				m.Income = m.Income.Add(r.Amount)
			}
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(r.Amount)
			byCat[r.Category] = byCat[r.Category].Add(r.Amount)
			if m != nil {
				m.Expenses = m.Expenses.Add(r.Amount)
			}
		case Investment:
			s.TotalInvestments = s.TotalInvestments.Add(r.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)

	for name, amt := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})

	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	sort.Strings(months)
	if len(months) > MonthsInOverview {
		months = months[len(months)-MonthsInOverview:]
	}
	for _, k := range months {
		s.Monthly = append(s.Monthly, *byMonth[k])
	}
	return s
}

// MonthSpending sums the expenses dated in the given YYYY-MM month.
func MonthSpending(records []FinancialRecord, month string) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Type == Expense && len(r.Date) >= 7 && r.Date[:7] == month {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// SummarizeProfessional counts records per type. AverageProgress is the mean
// rounded to the nearest integer, 0 for an empty collection.
func SummarizeProfessional(records []ProfessionalRecord) ProfessionalSummary {
	var s ProfessionalSummary
	total := 0
	for _, r := range records {
		switch r.Type {
		case Course:
			s.Courses++
		case Networking:
			s.Networking++
		case Skill:
			s.Skills++
		}
		total += r.Progress
	}
	if len(records) > 0 {
		s.AverageProgress = int(roundHalfUp(float64(total) / float64(len(records))))
	}
	return s
}

// SummarizeWellness counts records per type. AverageMood is the mean rounded
// to one decimal place, 0 for an empty collection.
func SummarizeWellness(records []WellnessRecord) WellnessSummary {
	var s WellnessSummary
	total := 0
	for _, r := range records {
		switch r.Type {
		case Meditation:
			s.Meditations++
			s.MinutesMeditated += r.Duration
		case Gratitude:
			s.Gratitude++
		case Reflection:
			s.Reflections++
		}
		total += r.Mood
	}
	if len(records) > 0 {
		mean := float64(total) / float64(len(records))
		s.AverageMood = roundHalfUp(mean*10) / 10
	}
	return s
}

// MoodEmoji maps a 1-10 mood score to the face shown next to it.
func MoodEmoji(mood int) string {
	switch {
	case mood <= 2:
		return "😢"
	case mood <= 4:
		return "😕"
	case mood <= 6:
		return "😐"
	case mood <= 8:
		return "😊"
	default:
		return "😄"
	}
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
