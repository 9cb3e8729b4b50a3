package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Field names used in FieldError, matching the form input names.
const (
	FieldType        = "type"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldDate        = "date"
	FieldTitle       = "title"
	FieldProgress    = "progress"
	FieldContent     = "content"
	FieldDuration    = "duration"
	FieldMood        = "mood"
)

const (
	MinProgress = 0
	MaxProgress = 100
	MinMood     = 1
	MaxMood     = 10
	DefaultMood = 5
	MinDuration = 1
)

// FinancialDraft holds the raw financial form fields before validation.
type FinancialDraft struct {
	Type        FinancialType
	Amount      string
	Description string
	Category    string
	Date        string
}

// ProfessionalDraft holds the raw professional form fields before validation.
type ProfessionalDraft struct {
	Type        ProfessionalType
	Title       string
	Description string
	Category    string
	Progress    string
}

// WellnessDraft holds the raw wellness form fields before validation.
type WellnessDraft struct {
	Type     WellnessType
	Content  string
	Duration string
	Mood     string
}

func NewFinancialDraft(now time.Time) FinancialDraft {
	var d FinancialDraft
	d.Reset(now)
	return d
}

func NewProfessionalDraft(now time.Time) ProfessionalDraft {
	var d ProfessionalDraft
	d.Reset(now)
	return d
}

func NewWellnessDraft(now time.Time) WellnessDraft {
	var d WellnessDraft
	d.Reset(now)
	return d
}

// Reset restores the blank form: an expense dated today.
func (d *FinancialDraft) Reset(now time.Time) {
	*d = FinancialDraft{Type: Expense, Date: now.Format(DateLayout)}
}

// Build validates the draft and constructs the record it describes.
func (d FinancialDraft) Build(id string, _ time.Time) (FinancialRecord, error) {
	var errs []error
	if !d.Type.Valid() {
		errs = append(errs, &FieldError{FieldType, ErrInvalidType})
	}
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		errs = append(errs, &FieldError{FieldAmount, err})
	}
	desc, err := requireText(FieldDescription, d.Description)
	errs = appendErr(errs, err)
	cat, err := requireText(FieldCategory, d.Category)
	errs = appendErr(errs, err)

	date := strings.TrimSpace(d.Date)
	if date == "" {
		errs = append(errs, &FieldError{FieldDate, ErrMissingField})
	} else if _, err := time.Parse(DateLayout, date); err != nil {
		errs = append(errs, &FieldError{FieldDate, ErrInvalidDate})
	}

	if len(errs) > 0 {
		return FinancialRecord{}, errors.Join(errs...)
	}
	return FinancialRecord{
		ID:          id,
		Type:        d.Type,
		Amount:      amount,
		Description: desc,
		Category:    cat,
		Date:        date,
	}, nil
}

// Reset restores the blank form: a course with no progress.
func (d *ProfessionalDraft) Reset(time.Time) {
	*d = ProfessionalDraft{Type: Course, Progress: "0"}
}

func (d ProfessionalDraft) Build(id string, now time.Time) (ProfessionalRecord, error) {
	var errs []error
	if !d.Type.Valid() {
		errs = append(errs, &FieldError{FieldType, ErrInvalidType})
	}
	title, err := requireText(FieldTitle, d.Title)
	errs = appendErr(errs, err)
	desc, err := requireText(FieldDescription, d.Description)
	errs = appendErr(errs, err)
	cat, err := requireText(FieldCategory, d.Category)
	errs = appendErr(errs, err)
	progress, err := parseIntField(FieldProgress, d.Progress, MinProgress, MaxProgress)
	errs = appendErr(errs, err)

	if len(errs) > 0 {
		return ProfessionalRecord{}, errors.Join(errs...)
	}
	return ProfessionalRecord{
		ID:          id,
		Type:        d.Type,
		Title:       title,
		Description: desc,
		Progress:    progress,
		Category:    cat,
		CreatedAt:   now.UTC(),
	}, nil
}

// Reset restores the blank form: a meditation with a neutral mood.
func (d *WellnessDraft) Reset(time.Time) {
	*d = WellnessDraft{Type: Meditation, Duration: "0", Mood: strconv.Itoa(DefaultMood)}
}

// Build validates the draft. Duration is only read for meditation entries
// and is dropped for every other type.
func (d WellnessDraft) Build(id string, now time.Time) (WellnessRecord, error) {
	var errs []error
	if !d.Type.Valid() {
		errs = append(errs, &FieldError{FieldType, ErrInvalidType})
	}
	content, err := requireText(FieldContent, d.Content)
	errs = appendErr(errs, err)
	mood, err := parseIntField(FieldMood, d.Mood, MinMood, MaxMood)
	errs = appendErr(errs, err)

	var duration int
	if d.Type == Meditation {
		duration, err = parseIntField(FieldDuration, d.Duration, MinDuration, 24*60)
		errs = appendErr(errs, err)
	}

	if len(errs) > 0 {
		return WellnessRecord{}, errors.Join(errs...)
	}
	return WellnessRecord{
		ID:       id,
		Type:     d.Type,
		Content:  content,
		Duration: duration,
		Mood:     mood,
		Date:     now.UTC(),
	}, nil
}

// ShowsDuration reports whether the duration input belongs on the form.
func (d WellnessDraft) ShowsDuration() bool { return d.Type == Meditation }

func requireText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &FieldError{field, ErrMissingField}
	}
	return s, nil
}

func parseIntField(field, s string, lo, hi int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &FieldError{field, ErrMissingField}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &FieldError{field, ErrInvalidNumber}
	}
	if n < lo || n > hi {
		return 0, &FieldError{field, ErrOutOfRange}
	}
	return n, nil
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}
