package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/core"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// Period converts the params to a core period.
func (p MonthParams) Period() core.Period {
	return core.Period{Year: p.Year, Month: p.Month}
}

// ParseMonthParams extracts year and month from query parameters, using the
// current date as defaults and correcting out-of-range months.
func ParseMonthParams(query url.Values) MonthParams {
	now := time.Now()
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			params.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			params.Month = m
		}
	}

	if params.Month < 1 || params.Month > 12 {
		params.Month = int(now.Month())
	}
	if params.Year < 1970 || params.Year > 9999 {
		params.Year = now.Year()
	}

	return params
}

// FormString returns a sanitized form value.
func FormString(form url.Values, key string) string {
	return sanitizeInput(form.Get(key))
}

// FormInt64 parses a form value as int64, returning 0 when absent or invalid.
func FormInt64(form url.Values, key string) int64 {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormBool reports whether a checkbox-style form value is set.
func FormBool(form url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(form.Get(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// FormDate parses a form value as a calendar date, defaulting to today when
// the field is empty.
func FormDate(form url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		now := time.Now()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	return core.ParseDate(v)
}

// FormKind parses the transaction kind field, defaulting to expense.
func FormKind(form url.Values, key string) core.TransactionKind {
	if core.TransactionKind(strings.TrimSpace(form.Get(key))) == core.Income {
		return core.Income
	}
	return core.Expense
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
