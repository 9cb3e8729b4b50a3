// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing request data into the section
// drafts. Forms and JSON bodies are accepted alike, since htmx can send both.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"lifebalance/internal/core"
	"lifebalance/internal/log"
	"lifebalance/internal/section"
)

// maxBodyBytes bounds every form or JSON body the server reads.
const maxBodyBytes = 64 << 10

// ParseFilterParam extracts the financial list filter from query parameters.
// Unknown filters fall back to showing everything.
func ParseFilterParam(query url.Values, logger *log.Logger) section.FinancialFilter {
	raw := query.Get("filter")
	f, err := section.ParseFinancialFilter(raw)
	if err != nil && logger != nil {
		logger.Warn("Invalid financial filter, showing all records", "filter", raw, log.FieldError, err)
	}
	return f
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads at most maxBodyBytes of the body once and keeps them for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ApplyFinancial copies the financial form fields into d.
func (p *RequestBodyParser) ApplyFinancial(d *core.FinancialDraft) {
	d.Type = core.FinancialType(p.Get(core.FieldType))
	d.Amount = p.Get(core.FieldAmount)
	d.Description = p.Get(core.FieldDescription)
	d.Category = p.Get(core.FieldCategory)
	d.Date = p.Get(core.FieldDate)
}

// ApplyProfessional copies the professional form fields into d.
func (p *RequestBodyParser) ApplyProfessional(d *core.ProfessionalDraft) {
	d.Type = core.ProfessionalType(p.Get(core.FieldType))
	d.Title = p.Get(core.FieldTitle)
	d.Description = p.Get(core.FieldDescription)
	d.Category = p.Get(core.FieldCategory)
	d.Progress = p.Get(core.FieldProgress)
}

// ApplyWellness copies the wellness form fields into d. The duration input
// is only rendered for meditations, so an absent duration keeps the draft's
// previous value.
func (p *RequestBodyParser) ApplyWellness(d *core.WellnessDraft) {
	d.Type = core.WellnessType(p.Get(core.FieldType))
	d.Content = p.Get(core.FieldContent)
	d.Mood = p.Get(core.FieldMood)
	if p.Has(core.FieldDuration) {
		d.Duration = p.Get(core.FieldDuration)
	}
}
