// Package memory keeps exported snapshot rows in process. The worker uses it
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	rows [][]any
}

var _ ports.SnapshotWriter = (*Sheet)(nil)

func New() *Sheet {
	return &Sheet{}
}

// AppendSnapshot stores the row and returns a synthetic row reference.
func (s *Sheet) AppendSnapshot(_ context.Context, rec core.MonthlySavings) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, ports.SnapshotRow(rec))
	return fmt.Sprintf("mem!A%d:H%d", len(s.rows), len(s.rows)), nil
}

// Rows returns a copy of the appended rows.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]any(nil), s.rows...)
}
