package core

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"

	Weekly  RecurrencePeriod = "weekly"
	Monthly RecurrencePeriod = "monthly"
)

// UnknownCategory is the display name used when a category reference
// cannot be resolved against the fetched category list.
const UnknownCategory = "Unknown"

type (
	TransactionKind  string
	RecurrencePeriod string

	Date struct {
		time.Time
	}

	// Period selects one calendar month of data.
	Period struct {
		Year  int
		Month int // 1-12
	}

	Category struct {
		ID          int64           `json:"id"`
		Name        string          `json:"name"`
		Kind        TransactionKind `json:"type"`
		Description string          `json:"description,omitempty"`
	}

	// CategoryRef is a category reference as the remote API serializes it,
	// which is not consistent across endpoints: sometimes an embedded
	// object, sometimes a bare numeric id, sometimes a plain name.
	CategoryRef struct {
		ID   int64
		Name string
	}

	Transaction struct {
		ID               int64            `json:"id"`
		Amount           decimal.Decimal  `json:"amount"`
		Description      string           `json:"description"`
		Date             Date             `json:"date"`
		Kind             TransactionKind  `json:"type"`
		Category         CategoryRef      `json:"category"`
		IsRecurring      bool             `json:"is_recurring"`
		RecurrencePeriod RecurrencePeriod `json:"recurrence_type,omitempty"`
	}

	Budget struct {
		ID        int64           `json:"id"`
		Name      string          `json:"name"`
		Limit     decimal.Decimal `json:"amount"`
		Category  CategoryRef     `json:"category"`
		StartDate Date            `json:"start_date"`
		EndDate   Date            `json:"end_date"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid transaction type")
	ErrInvalidRecurrence = errors.New("invalid recurrence period")
	ErrEmptyDescription  = errors.New("empty description")
	ErrShortDescription  = errors.New("description too short (min 3 characters)")
	ErrEmptyName         = errors.New("empty name")
	ErrMissingCategory   = errors.New("missing category")
	ErrInvertedDateRange = errors.New("end date must not be before start date")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in the API's YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Time.Year(), Month: int(d.Time.Month())}
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		// Tolerate malformed dates: a zero Date is excluded from
		// aggregation instead of failing the whole decode.
		d.Time = time.Time{}
		return nil
	}
	d.Time = parsed.Time
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// First returns the first day of the period.
func (p Period) First() Date {
	return NewDate(p.Year, p.Month, 1)
}

// LastDay returns the last day of the period.
func (p Period) LastDay() Date {
	return Date{Time: NewDate(p.Year, p.Month+1, 1).AddDate(0, 0, -1)}
}

// Previous returns the immediately preceding calendar month.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Contains reports whether the date falls inside the period's calendar month.
func (p Period) Contains(d Date) bool {
	if d.IsZero() {
		return false
	}
	return d.Time.Year() == p.Year && int(d.Time.Month()) == p.Month
}

// Key returns a stable cache key such as "2025-07".
func (p Period) Key() string {
	return strconv.Itoa(p.Year) + "-" + twoDigits(p.Month)
}

// Label returns a display label such as "July 2025".
func (p Period) Label() string {
	return time.Month(p.Month).String() + " " + strconv.Itoa(p.Year)
}

func twoDigits(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// CurrentPeriod returns the period for the given instant.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

func (k TransactionKind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	}
	return ErrInvalidKind
}

// UnmarshalJSON accepts the three category encodings the remote API uses.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*c = CategoryRef{}
		return nil
	}
	switch data[0] {
	case '{':
		var obj struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = CategoryRef{ID: obj.ID, Name: obj.Name}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			*c = CategoryRef{ID: id}
		} else {
			*c = CategoryRef{Name: s}
		}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = CategoryRef{ID: id}
		return nil
	}
}

// MarshalJSON emits the id when known, matching what the API expects on
// writes; a name-only reference falls back to the plain name.
func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if c.ID != 0 {
		return json.Marshal(c.ID)
	}
	return json.Marshal(c.Name)
}

// IsZero reports whether the reference carries neither an id nor a name.
func (c CategoryRef) IsZero() bool {
	return c.ID == 0 && c.Name == ""
}

// CategoryLookup resolves category ids to display names.
type CategoryLookup map[int64]string

// NewCategoryLookup builds a lookup table from a fetched category list.
func NewCategoryLookup(categories []Category) CategoryLookup {
	lookup := make(CategoryLookup, len(categories))
	for _, c := range categories {
		lookup[c.ID] = c.Name
	}
	return lookup
}

// Resolve returns the display name for a category reference, preferring an
// embedded name, then the lookup table, then UnknownCategory.
func (c CategoryRef) Resolve(lookup CategoryLookup) string {
	if c.Name != "" {
		return c.Name
	}
	if name, ok := lookup[c.ID]; ok && name != "" {
		return name
	}
	return UnknownCategory
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) < 3 {
		return ErrShortDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Category.IsZero() {
		return ErrMissingCategory
	}
	if t.IsRecurring {
		switch t.RecurrencePeriod {
		case Weekly, Monthly:
		default:
			return ErrInvalidRecurrence
		}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !b.Limit.IsPositive() {
		return ErrInvalidAmount
	}
	if b.Category.IsZero() {
		return ErrMissingCategory
	}
	if err := b.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := b.EndDate.Validate(); err != nil {
		return errors.New("invalid end date: " + err.Error())
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrInvertedDateRange
	}
	return nil
}

// ContainsDay reports whether the budget's [start, end] interval contains
// the given day. The interval is inclusive on both ends.
func (b Budget) ContainsDay(d Date) bool {
	if d.IsZero() || b.StartDate.IsZero() || b.EndDate.IsZero() {
		return false
	}
	return !d.Before(b.StartDate.Time) && !d.After(b.EndDate.Time)
}
