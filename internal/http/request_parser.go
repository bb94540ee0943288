package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/app"
	"bilancio/internal/core"
)

const maxBodyBytes = 64 << 10

// ParseMonth reads a month as "month=YYYY-MM", or as separate "year" and "month"
// values. Missing or invalid input falls back to fallback.
func ParseMonth(values url.Values, fallback core.YearMonth) core.YearMonth {
	raw := strings.TrimSpace(values.Get("month"))
	if t, err := time.Parse("2006-01", raw); err == nil {
		return core.NewYearMonth(t.Year(), int(t.Month()))
	}

	ym := fallback
	if y, err := strconv.Atoi(strings.TrimSpace(values.Get("year"))); err == nil && y > 0 {
		ym.Year = y
	}
	if m, err := strconv.Atoi(raw); err == nil && m >= 1 && m <= 12 {
		ym.Month = time.Month(m)
	}
	return ym
}

// FormatMonth is the inverse of ParseMonth's YYYY-MM form.
func FormatMonth(ym core.YearMonth) string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// RequestBodyParser reads a JSON object or a urlencoded form, whichever the body holds.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	}
	return p
}

func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitised value of key.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Values exposes the parsed body as url.Values for ParseMonth.
func (p *RequestBodyParser) Values() url.Values {
	if p.formData != nil {
		return p.formData
	}
	out := url.Values{}
	for k, v := range p.jsonData {
		out.Set(k, stringValue(v))
	}
	return out
}

// Draft builds the form content for kind from the body.
func (p *RequestBodyParser) Draft(kind core.Kind) app.Draft {
	return app.Draft{
		Kind:     kind,
		Amount:   p.Get("amount"),
		Date:     p.Get("date"),
		Category: p.Get("category"),
		Reason:   p.Get("reason"),
		Source:   p.Get("source"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput trims s and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// confirmed reports whether a destructive request carries an explicit confirmation.
func confirmed(r *http.Request, p *RequestBodyParser) bool {
	for _, v := range []string{r.URL.Query().Get("confirm"), p.Get("confirm")} {
		switch strings.ToLower(v) {
		case "yes", "true", "1":
			return true
		}
	}
	return false
}
