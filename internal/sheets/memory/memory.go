// Package memory is an in-process TabWriter used by tests and dry runs of the worker.
package memory

import (
	"context"
	"sort"
	"sync"

	"bilancio/internal/sheets"
)

var _ sheets.TabWriter = (*Spreadsheet)(nil)

type Spreadsheet struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
	// Err, when set, is returned by every WriteTab call.
	Err error
}

func New() *Spreadsheet {
	return &Spreadsheet{tabs: map[string][][]any{}}
}

// WriteTab replaces tab with a copy of rows.
func (s *Spreadsheet) WriteTab(_ context.Context, tab string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	s.tabs[tab] = cp
	s.writes++
	return nil
}

// Tab returns the rows last written to tab and whether it exists.
func (s *Spreadsheet) Tab(tab string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[tab]
	return rows, ok
}

// Tabs lists tab names in sorted order.
func (s *Spreadsheet) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tabs))
	for name := range s.tabs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes counts successful WriteTab calls.
func (s *Spreadsheet) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Fail makes subsequent writes return err; nil restores normal behaviour.
func (s *Spreadsheet) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Err = err
}
