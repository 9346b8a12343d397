package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

const dateLayout = "2006-01-02"

type (
	// TxType is the closed income/expense tag. The sign of a transaction
	// lives here, never in the amount.
	TxType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID        string    `json:"id,omitempty"`
		OwnerID   string    `json:"ownerId"`
		Name      string    `json:"name"`
		Amount    Money     `json:"amount"`
		Type      TxType    `json:"type"`
		Tag       string    `json:"tag"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"createdAt"`
		ClientID  string    `json:"clientId,omitempty"`
	}

	// Patch carries the fields of an update request; nil fields keep the
	// stored value.
	Patch struct {
		Name   *string `json:"name,omitempty"`
		Amount *Money  `json:"amount,omitempty"`
		Type   *TxType `json:"type,omitempty"`
		Tag    *string `json:"tag,omitempty"`
		Date   *Date   `json:"date,omitempty"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrFutureDate    = errors.New("date is in the future")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidType   = errors.New("type must be income or expense")
	ErrEmptyName     = errors.New("empty name")
	ErrNameTooLong   = errors.New("name too long (max 200 characters)")
	ErrEmptyTag      = errors.New("empty tag")
	ErrEmptyOwner    = errors.New("empty owner")
)

// ParseTxType accepts income/expense in any case.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	return t, nil
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own location for the
// day boundary.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. RFC 3339 timestamps are accepted and
// truncated to their calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > MaxAmountCents {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks the invariants every stored transaction must satisfy.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return &ValidationError{Field: "ownerId", Err: ErrEmptyOwner}
	}
	return t.validateFields()
}

// ValidateForInput applies the checks of Validate plus the user-input rule
// that the date may not lie after today.
func (t Transaction) ValidateForInput(now time.Time) error {
	if err := t.validateFields(); err != nil {
		return err
	}
	if t.Date.After(DateOf(now).Time) {
		return &ValidationError{Field: "date", Err: ErrFutureDate}
	}
	return nil
}

func (t Transaction) validateFields() error {
	if len(strings.TrimSpace(t.Name)) == 0 {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	if len(t.Name) > 200 {
		return &ValidationError{Field: "name", Err: ErrNameTooLong}
	}
	if err := t.Amount.Validate(); err != nil {
		return &ValidationError{Field: "amount", Err: err}
	}
	if !t.Type.Valid() {
		return &ValidationError{Field: "type", Err: ErrInvalidType}
	}
	if strings.TrimSpace(t.Tag) == "" {
		return &ValidationError{Field: "tag", Err: ErrEmptyTag}
	}
	if err := t.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	return nil
}

// SameContent reports whether two transactions carry the same user-visible
// data, ignoring store-assigned identity.
func (t Transaction) SameContent(o Transaction) bool {
	return t.Name == o.Name &&
		t.Amount == o.Amount &&
		t.Type == o.Type &&
		t.Tag == o.Tag &&
		t.Date.Equal(o.Date.Time)
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Amount == nil && p.Type == nil && p.Tag == nil && p.Date == nil
}

// Apply returns t with the patch fields replaced. Identity fields are kept.
func (p Patch) Apply(t Transaction) Transaction {
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Tag != nil {
		t.Tag = strings.TrimSpace(*p.Tag)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}
