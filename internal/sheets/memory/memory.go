package memory

import (
	"context"
	"fmt"
	"sync"

	"bankreport/internal/sheets"
)

var _ sheets.SummaryWriter = (*Store)(nil)

// Store collects summary rows in memory, header first.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

func New() *Store {
	return &Store{}
}

// AppendSummary stores the rows and returns a synthetic range reference.
func (s *Store) AppendSummary(_ context.Context, rows []sheets.SummaryRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		s.rows = append(s.rows, sheets.SummaryHeader())
	}
	first := len(s.rows) + 1
	for _, r := range rows {
		s.rows = append(s.rows, r.Values())
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

// Rows returns a copy of everything written so far, header included.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
