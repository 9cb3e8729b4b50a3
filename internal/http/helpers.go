package http

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifebalance/internal/core"
)

var errBodyTooLarge = errors.New("request body too large")

// templateFuncs are available to every page template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"brl":       core.FormatBRL,
		"date":      formatDate,
		"dayMonth":  formatDayMonth,
		"moodEmoji": moodEmoji,
		"percent":   func(v int) template.CSS { return template.CSS("width: " + strconv.Itoa(clampPercent(v)) + "%") },
		"initials": func(u *core.User) string {
			if u == nil {
				return ""
			}
			return u.Initials()
		},
	}
}

// formatDate renders a time.Time or a YYYY-MM-DD string as DD/MM/YYYY.
func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006")
	case string:
		parsed, err := time.Parse(core.DateLayout, t)
		if err != nil {
			return t
		}
		return parsed.Format("02/01/2006")
	default:
		return ""
	}
}

// formatDayMonth renders a YYYY-MM month key as MM/YYYY.
func formatDayMonth(month string) string {
	parsed, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return parsed.Format("01/2006")
}

func moodEmoji(v any) string {
	switch m := v.(type) {
	case int:
		return core.MoodEmoji(m)
	case float64:
		return core.MoodEmoji(int(math.Round(m)))
	default:
		return ""
	}
}

// barWidth scales v against the largest value of its chart to a percentage.
// Non-zero values get at least 2% so they stay visible.
func barWidth(v, largest decimal.Decimal) int {
	if !largest.IsPositive() || !v.IsPositive() {
		return 0
	}
	pct := int(v.Mul(decimal.NewFromInt(100)).Div(largest).Round(0).IntPart())
	if pct < 2 {
		pct = 2
	}
	return clampPercent(pct)
}

func clampPercent(v int) int {
	return min(max(v, 0), 100)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
