package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Storage keys, identical to the ones the browser build used so existing
// blobs stay readable.
const (
	UserKey         = "lifeBalanceUser"
	FinancialKey    = "financial-records"
	ProfessionalKey = "professional-records"
	WellnessKey     = "wellness-records"
)

// DateLayout is the calendar-date format used by financial records.
const DateLayout = "2006-01-02"

const (
	KindFinancial    Kind = "financial"
	KindProfessional Kind = "professional"
	KindWellness     Kind = "wellness"
)

const (
	Income     FinancialType = "income"
	Expense    FinancialType = "expense"
	Investment FinancialType = "investment"

	Course     ProfessionalType = "course"
	Networking ProfessionalType = "networking"
	Skill      ProfessionalType = "skill"

	Meditation WellnessType = "meditation"
	Gratitude  WellnessType = "gratitude"
	Reflection WellnessType = "reflection"
)

type (
	// Kind names one of the record collections.
	Kind string

	FinancialType    string
	ProfessionalType string
	WellnessType     string

	// Record is the common view of the three record schemas.
	Record interface {
		RecordID() string
		RecordKind() Kind
		RecordType() string
		Timestamp() time.Time
		Headline() string
	}

	FinancialRecord struct {
		ID          string          `json:"id"`
		Type        FinancialType   `json:"type"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Date        string          `json:"date"` // YYYY-MM-DD
	}

	ProfessionalRecord struct {
		ID          string           `json:"id"`
		Type        ProfessionalType `json:"type"`
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Progress    int              `json:"progress"`
		Category    string           `json:"category"`
		CreatedAt   time.Time        `json:"createdAt"`
	}

	WellnessRecord struct {
		ID       string       `json:"id"`
		Type     WellnessType `json:"type"`
		Content  string       `json:"content"`
		Duration int          `json:"duration,omitempty"` // minutes
		Mood     int          `json:"mood"`
		Date     time.Time    `json:"date"`
	}
)

// StorageKey returns the key the collection of this kind is persisted under.
func (k Kind) StorageKey() string {
	switch k {
	case KindFinancial:
		return FinancialKey
	case KindProfessional:
		return ProfessionalKey
	case KindWellness:
		return WellnessKey
	default:
		return ""
	}
}

func (t FinancialType) Valid() bool {
	switch t {
	case Income, Expense, Investment:
		return true
	}
	return false
}

func (t FinancialType) Label() string {
	switch t {
	case Income:
		return "Receita"
	case Expense:
		return "Despesa"
	case Investment:
		return "Investimento"
	}
	return string(t)
}

func (t ProfessionalType) Valid() bool {
	switch t {
	case Course, Networking, Skill:
		return true
	}
	return false
}

func (t ProfessionalType) Label() string {
	switch t {
	case Course:
		return "Curso"
	case Networking:
		return "Networking"
	case Skill:
		return "Habilidade"
	}
	return string(t)
}

func (t WellnessType) Valid() bool {
	switch t {
	case Meditation, Gratitude, Reflection:
		return true
	}
	return false
}

func (t WellnessType) Label() string {
	switch t {
	case Meditation:
		return "Meditação"
	case Gratitude:
		return "Gratidão"
	case Reflection:
		return "Reflexão"
	}
	return string(t)
}

// FinancialTypes lists the financial types in form order.
func FinancialTypes() []FinancialType { return []FinancialType{Expense, Income, Investment} }

// ProfessionalTypes lists the professional types in form order.
func ProfessionalTypes() []ProfessionalType { return []ProfessionalType{Course, Networking, Skill} }

// WellnessTypes lists the wellness types in form order.
func WellnessTypes() []WellnessType { return []WellnessType{Meditation, Gratitude, Reflection} }

func (r FinancialRecord) RecordID() string   { return r.ID }
func (r FinancialRecord) RecordKind() Kind   { return KindFinancial }
func (r FinancialRecord) RecordType() string { return string(r.Type) }
func (r FinancialRecord) Headline() string   { return r.Description }

// Timestamp returns the record date at midnight UTC, or the zero time when
// the stored date is not a calendar date.
func (r FinancialRecord) Timestamp() time.Time {
	t, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MarshalJSON writes the amount as a JSON number, the shape the stored
// collections have always used.
func (r FinancialRecord) MarshalJSON() ([]byte, error) {
	type wire FinancialRecord
	return json.Marshal(struct {
		wire
		Amount json.Number `json:"amount"`
	}{wire: wire(r), Amount: json.Number(r.Amount.String())})
}

func (r ProfessionalRecord) RecordID() string     { return r.ID }
func (r ProfessionalRecord) RecordKind() Kind     { return KindProfessional }
func (r ProfessionalRecord) RecordType() string   { return string(r.Type) }
func (r ProfessionalRecord) Timestamp() time.Time { return r.CreatedAt }
func (r ProfessionalRecord) Headline() string     { return r.Title }

func (r WellnessRecord) RecordID() string     { return r.ID }
func (r WellnessRecord) RecordKind() Kind     { return KindWellness }
func (r WellnessRecord) RecordType() string   { return string(r.Type) }
func (r WellnessRecord) Timestamp() time.Time { return r.Date }

// Headline is the first line of the entry content, capped at 80 runes.
func (r WellnessRecord) Headline() string {
	return truncate(firstLine(r.Content), 80)
}

func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' || c == '\r' {
			return s[:i]
		}
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
