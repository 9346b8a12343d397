package aggregate

import (
	"errors"
	"slices"
	"strings"

	"fintrack/internal/core"
)

type SortField string

type Direction string

const (
	SortName   SortField = "name"
	SortAmount SortField = "amount"
	SortType   SortField = "type"
	SortTag    SortField = "tag"
	SortDate   SortField = "date"

	Asc  Direction = "asc"
	Desc Direction = "desc"

	// FilterAll disables type filtering; the empty string does too.
	FilterAll = "all"
)

var (
	errSortField = errors.New("sort must be one of name, amount, type, tag, date")
	errDirection = errors.New("dir must be asc or desc")
	errFilter    = errors.New("type must be all, income or expense")
)

// Query describes a list view. Zero values select every transaction sorted
// by date, newest first.
type Query struct {
	TypeFilter string
	Search     string
	SortField  SortField
	Direction  Direction
}

func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "":
		return SortDate, nil
	case SortName, SortAmount, SortType, SortTag, SortDate:
		return f, nil
	}
	return "", &core.ValidationError{Field: "sort", Err: errSortField}
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case "":
		return Desc, nil
	case Asc, Desc:
		return d, nil
	}
	return "", &core.ValidationError{Field: "dir", Err: errDirection}
}

// ParseTypeFilter accepts all, income or expense; empty means all.
func ParseTypeFilter(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	switch f {
	case "", FilterAll:
		return FilterAll, nil
	case string(core.Income), string(core.Expense):
		return f, nil
	}
	return "", &core.ValidationError{Field: "type", Err: errFilter}
}

// ToggleDirection returns the sort state after a column header is clicked:
// the active column flips direction, a new column starts descending.
func ToggleDirection(current SortField, dir Direction, clicked SortField) (SortField, Direction) {
	if clicked != current {
		return clicked, Desc
	}
	if dir == Asc {
		return clicked, Desc
	}
	return clicked, Asc
}

// FilterAndSort returns a new slice; the input is left untouched. Sorting is
// stable so equal keys keep their input order in both directions.
func FilterAndSort(txs []core.Transaction, q Query) []core.Transaction {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if q.TypeFilter != "" && q.TypeFilter != FilterAll && string(tx.Type) != q.TypeFilter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(tx.Name), search) &&
			!strings.Contains(strings.ToLower(tx.Tag), search) {
			continue
		}
		out = append(out, tx)
	}

	field := q.SortField
	if field == "" {
		field = SortDate
	}
	cmp := comparator(field)
	if q.Direction == Asc {
		slices.SortStableFunc(out, cmp)
	} else {
		slices.SortStableFunc(out, func(a, b core.Transaction) int { return cmp(b, a) })
	}
	return out
}

func comparator(field SortField) func(a, b core.Transaction) int {
	switch field {
	case SortName:
		return func(a, b core.Transaction) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortAmount:
		return func(a, b core.Transaction) int { return compareInt(a.Amount.Cents, b.Amount.Cents) }
	case SortType:
		return func(a, b core.Transaction) int { return strings.Compare(string(a.Type), string(b.Type)) }
	case SortTag:
		return func(a, b core.Transaction) int { return strings.Compare(strings.ToLower(a.Tag), strings.ToLower(b.Tag)) }
	default:
		return func(a, b core.Transaction) int { return a.Date.Compare(b.Date.Time) }
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
