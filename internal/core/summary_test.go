package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func fin(t FinancialType, amount, cat, date string) FinancialRecord {
	return FinancialRecord{Type: t, Amount: decimal.RequireFromString(amount), Category: cat, Date: date}
}

func TestSummarizeFinancialExample(t *testing.T) {
	s := SummarizeFinancial([]FinancialRecord{fin(Expense, "25.50", "Food", "2024-01-01")})
	if !s.TotalExpenses.Equal(decimal.RequireFromString("25.5")) {
		t.Fatalf("expected expenses 25.5, got %s", s.TotalExpenses)
	}
	if !s.TotalIncome.IsZero() {
		t.Fatalf("expected no income, got %s", s.TotalIncome)
	}
	if !s.Balance.Equal(decimal.RequireFromString("-25.5")) {
		t.Fatalf("expected balance -25.5, got %s", s.Balance)
	}
}

func TestSummarizeFinancialBreakdown(t *testing.T) {
	records := []FinancialRecord{
		fin(Income, "5000", "Salário", "2024-03-05"),
		fin(Expense, "100", "Food", "2024-03-02"),
		fin(Expense, "300", "Rent", "2024-02-01"),
		fin(Expense, "50", "Food", "2024-01-20"),
		fin(Investment, "1000", "Tesouro", "2024-01-10"),
	}
	s := SummarizeFinancial(records)
	if !s.TotalInvestments.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("unexpected investments %s", s.TotalInvestments)
	}
	if !s.Balance.Equal(decimal.NewFromInt(4550)) {
		t.Fatalf("unexpected balance %s", s.Balance)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Rent" || !s.ByCategory[1].Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected categories %+v", s.ByCategory)
	}
	if len(s.Monthly) != 3 || s.Monthly[0].Month != "2024-01" || s.Monthly[2].Month != "2024-03" {
		t.Fatalf("unexpected months %+v", s.Monthly)
	}
	if !s.Monthly[2].Income.Equal(decimal.NewFromInt(5000)) || !s.Monthly[2].Expenses.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected march %+v", s.Monthly[2])
	}
	if got := MonthSpending(records, "2024-03"); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected month spending %s", got)
	}
}

func TestSummarizeFinancialKeepsLastMonths(t *testing.T) {
	var records []FinancialRecord
	for _, d := range []string{"2023-09-01", "2023-10-01", "2023-11-01", "2023-12-01", "2024-01-01", "2024-02-01", "2024-03-01", "2024-04-01"} {
		records = append(records, fin(Expense, "1", "x", d))
	}
	s := SummarizeFinancial(records)
	if len(s.Monthly) != MonthsInOverview || s.Monthly[0].Month != "2023-11" {
		t.Fatalf("unexpected months %+v", s.Monthly)
	}
}

func TestEmptyAggregates(t *testing.T) {
	if p := SummarizeProfessional(nil); p.AverageProgress != 0 {
		t.Fatalf("expected 0, got %d", p.AverageProgress)
	}
	if w := SummarizeWellness(nil); w.AverageMood != 0 {
		t.Fatalf("expected 0, got %v", w.AverageMood)
	}
	if f := SummarizeFinancial(nil); !f.Balance.IsZero() || len(f.Monthly) != 0 {
		t.Fatalf("unexpected summary %+v", f)
	}
}

func TestSummarizeProfessionalRounding(t *testing.T) {
	s := SummarizeProfessional([]ProfessionalRecord{
		{Type: Course, Progress: 50},
		{Type: Skill, Progress: 51},
	})
	if s.AverageProgress != 51 { // 50.5 rounds up
		t.Fatalf("expected 51, got %d", s.AverageProgress)
	}
	if s.Courses != 1 || s.Skills != 1 || s.Networking != 0 {
		t.Fatalf("unexpected counts %+v", s)
	}
}

func TestSummarizeWellness(t *testing.T) {
	s := SummarizeWellness([]WellnessRecord{
		{Type: Meditation, Mood: 7, Duration: 10},
		{Type: Meditation, Mood: 8, Duration: 20},
		{Type: Gratitude, Mood: 9},
	})
	if s.AverageMood != 8 {
		t.Fatalf("expected 8, got %v", s.AverageMood)
	}
	if s.Meditations != 2 || s.Gratitude != 1 || s.MinutesMeditated != 30 {
		t.Fatalf("unexpected summary %+v", s)
	}

	s = SummarizeWellness([]WellnessRecord{{Mood: 7}, {Mood: 8}, {Mood: 8}})
	if s.AverageMood != 7.7 {
		t.Fatalf("expected 7.7, got %v", s.AverageMood)
	}
}

func TestMoodEmoji(t *testing.T) {
	cases := map[int]string{1: "😢", 2: "😢", 3: "😕", 5: "😐", 7: "😊", 8: "😊", 9: "😄", 10: "😄"}
	for m, want := range cases {
		if got := MoodEmoji(m); got != want {
			t.Fatalf("mood %d: expected %s, got %s", m, want, got)
		}
	}
}
