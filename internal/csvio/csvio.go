// Package csvio reads and writes transactions as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"fintrack/internal/core"
)

var (
	ErrEmptyFile     = errors.New("csv: no header row")
	ErrMissingColumn = errors.New("csv: missing column")
)

// Header is the column order written by Export.
var Header = []string{"Name", "Amount", "Type", "Tag", "Date"}

var required = []string{"name", "amount", "type", "tag"}

// Export writes txs with a header row. Amounts are decimal strings and dates
// use the 2006-01-02 layout.
func Export(w io.Writer, txs []core.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tx := range txs {
		row := []string{tx.Name, tx.Amount.String(), string(tx.Type), tx.Tag, tx.Date.String()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import parses drafts from r. Columns are located by header name in any
// case and order; a missing or empty date means the day of now. Rows that
// cannot be parsed are reported as *core.RowError and skipped. The returned
// error is set only when the file itself is unusable.
func Import(r io.Reader, now time.Time) ([]core.Transaction, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	var (
		drafts []core.Transaction
		errs   []error
	)
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, &core.RowError{Row: row, Err: err})
			continue
		}
		tx, err := parseRow(rec, cols, now)
		if err != nil {
			errs = append(errs, &core.RowError{Row: row, Err: err})
			continue
		}
		drafts = append(drafts, tx)
	}
	return drafts, errs, nil
}

func parseRow(rec []string, cols map[string]int, now time.Time) (core.Transaction, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	amount, err := core.ParseAmount(field("amount"))
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Field: "amount", Err: err}
	}
	typ, err := core.ParseTxType(field("type"))
	if err != nil {
		return core.Transaction{}, err
	}
	date := core.DateOf(now)
	if s := field("date"); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.Transaction{}, &core.ValidationError{Field: "date", Err: err}
		}
	}
	return core.Transaction{
		Name:   field("name"),
		Amount: amount,
		Type:   typ,
		Tag:    field("tag"),
		Date:   date,
	}, nil
}
