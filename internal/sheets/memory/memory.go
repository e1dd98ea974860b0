// Package memory is an in-memory sheets backend used by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"expensebot/internal/core"
	ports "expensebot/internal/sheets"
)

// Service stores workbooks in memory. Error fields let tests force failures
// on specific operations.
type Service struct {
	mu    sync.Mutex
	seq   int
	books map[string]*Workbook

	CreateErr error
	OpenErr   error
	// ShareErr is copied onto every new workbook.
	ShareErr error
}

var _ ports.Service = (*Service)(nil)

func New() *Service {
	return &Service{books: map[string]*Workbook{}}
}

func (s *Service) Create(_ context.Context, title string) (ports.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.seq++
	w := &Workbook{id: fmt.Sprintf("mem-%d", s.seq), Title: title, ShareErr: s.ShareErr}
	s.books[w.id] = w
	return w, nil
}

func (s *Service) Open(_ context.Context, sheetID string) (ports.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	w, ok := s.books[sheetID]
	if !ok {
		return nil, fmt.Errorf("spreadsheet %s not found", sheetID)
	}
	return w, nil
}

// Lookup exposes a workbook to test assertions without going through Open.
func (s *Service) Lookup(sheetID string) (*Workbook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.books[sheetID]
	return w, ok
}

// Workbook is one in-memory spreadsheet. Rows includes the header.
type Workbook struct {
	mu     sync.Mutex
	id     string
	Title  string
	rows   [][]string
	grants []ports.Grant

	AppendErr  error
	RecordsErr error
	ShareErr   error
}

var _ ports.Handle = (*Workbook)(nil)

func (w *Workbook) ID() string { return w.id }

func (w *Workbook) AppendRow(_ context.Context, row []any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.AppendErr != nil {
		return w.AppendErr
	}
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = fmt.Sprint(v)
	}
	w.rows = append(w.rows, cells)
	return nil
}

func (w *Workbook) Records(_ context.Context) ([]core.Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.RecordsErr != nil {
		return nil, w.RecordsErr
	}
	var out []core.Record
	for i, row := range w.rows {
		if i == 0 {
			continue
		}
		if rec, ok := core.RecordFromRow(row); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (w *Workbook) Share(_ context.Context, g ports.Grant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ShareErr != nil {
		return w.ShareErr
	}
	w.grants = append(w.grants, g)
	return nil
}

// Rows returns a copy of all rows, header included.
func (w *Workbook) Rows() [][]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([][]string, len(w.rows))
	for i, r := range w.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Grants returns every access grant applied so far.
func (w *Workbook) Grants() []ports.Grant {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ports.Grant(nil), w.grants...)
}
