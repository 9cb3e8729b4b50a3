package section

import (
	"context"
	"fmt"
	"strings"

	"lifebalance/internal/core"
	"lifebalance/internal/storage"
)

// ListLimit is how many records the financial and wellness lists render.
const ListLimit = 10

type (
	Financial    = Controller[core.FinancialDraft, core.FinancialRecord]
	Professional = Controller[core.ProfessionalDraft, core.ProfessionalRecord]
	Wellness     = Controller[core.WellnessDraft, core.WellnessRecord]
)

func OpenFinancial(ctx context.Context, kv storage.KV, device string, deps Deps) (*Financial, error) {
	return Open[core.FinancialDraft, core.FinancialRecord](ctx, kv, device, core.KindFinancial, core.NewFinancialDraft, deps)
}

func OpenProfessional(ctx context.Context, kv storage.KV, device string, deps Deps) (*Professional, error) {
	return Open[core.ProfessionalDraft, core.ProfessionalRecord](ctx, kv, device, core.KindProfessional, core.NewProfessionalDraft, deps)
}

func OpenWellness(ctx context.Context, kv storage.KV, device string, deps Deps) (*Wellness, error) {
	return Open[core.WellnessDraft, core.WellnessRecord](ctx, kv, device, core.KindWellness, core.NewWellnessDraft, deps)
}

// FinancialFilter narrows the financial list by type. The empty filter and
// FilterAll match everything.
type FinancialFilter string

const FilterAll FinancialFilter = "all"

// ParseFinancialFilter accepts all, income, expense or investment.
func ParseFinancialFilter(s string) (FinancialFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if !core.FinancialType(s).Valid() {
		return FilterAll, fmt.Errorf("unknown filter %q: %w", s, core.ErrInvalidType)
	}
	return FinancialFilter(s), nil
}

func (f FinancialFilter) Match(r core.FinancialRecord) bool {
	return f == "" || f == FilterAll || string(r.Type) == string(f)
}

// FilterFinancial returns the first limit records matching f, keeping order.
// A limit of zero or less means no limit. The input is never modified.
func FilterFinancial(records []core.FinancialRecord, f FinancialFilter, limit int) []core.FinancialRecord {
	out := make([]core.FinancialRecord, 0, min(len(records), max(limit, 0)))
	for _, r := range records {
		if limit > 0 && len(out) == limit {
			break
		}
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Head returns at most n leading records.
func Head[R any](records []R, n int) []R {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[:n]
}
