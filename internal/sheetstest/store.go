// Package sheetstest provides an in-memory spreadsheet for tests: a Store that
// implements holdingsync.Table directly, and a fake Sheets v4 REST server
// backed by the same Store.
package sheetstest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"holdingsync/internal/a1"
	"holdingsync/pkg/holdingsync"
)

// Operations recorded in Call.Op.
const (
	OpGet         = "get"
	OpUpdate      = "update"
	OpBatchUpdate = "batchUpdate"
	OpAppend      = "append"
	OpClear       = "clear"
)

// ErrRateLimited is returned for calls arriving closer together than
// Store.MinInterval.
var ErrRateLimited = errors.New("rate limit exceeded")

// Call is one recorded store call.
type Call struct {
	Op          string
	Range       string
	InputOption string
	At          time.Time
}

type cell struct {
	row, col int
}

// Store is a thread-safe in-memory spreadsheet keyed by sheet name.
type Store struct {
	// FailFunc, when set, is consulted before each call; a non-nil error
	// fails the call without touching data.
	FailFunc func(op, rng string) error
	// MinInterval rejects calls that arrive sooner than this after the
	// previous call.
	MinInterval time.Duration

	mu     sync.Mutex
	sheets map[string]map[cell]string
	calls  []Call
	last   time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{sheets: map[string]map[cell]string{}}
}

var _ holdingsync.Table = (*Store)(nil)

func (s *Store) begin(op, rng, inputOption string) error {
	now := time.Now()
	s.calls = append(s.calls, Call{Op: op, Range: rng, InputOption: inputOption, At: now})
	prev := s.last
	s.last = now
	if s.MinInterval > 0 && !prev.IsZero() && now.Sub(prev) < s.MinInterval {
		return fmt.Errorf("%s %s: %w", op, rng, ErrRateLimited)
	}
	if s.FailFunc != nil {
		if err := s.FailFunc(op, rng); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) sheet(name string) map[cell]string {
	sh, ok := s.sheets[name]
	if !ok {
		sh = map[cell]string{}
		s.sheets[name] = sh
	}
	return sh
}

func (s *Store) extent(sh map[cell]string) (rows, cols int) {
	for c := range sh {
		rows = max(rows, c.row)
		cols = max(cols, c.col)
	}
	return rows, cols
}

// Get implements holdingsync.Table. Trailing empty cells and rows are
// trimmed, as the real API does.
func (s *Store) Get(_ context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpGet, rng, ""); err != nil {
		return nil, err
	}
	return s.read(rng)
}

func (s *Store) read(rng string) ([][]string, error) {
	r, err := a1.Parse(rng)
	if err != nil {
		return nil, err
	}
	sh := s.sheet(r.Sheet)
	maxRow, maxCol := s.extent(sh)
	fromRow, fromCol := max(r.FromRow, 1), max(r.FromCol, 1)
	toRow, toCol := r.ToRow, r.ToCol
	if toRow == 0 {
		toRow = maxRow
	}
	if toCol == 0 {
		toCol = maxCol
	}
	var out [][]string
	for row := fromRow; row <= toRow; row++ {
		var vals []string
		for col := fromCol; col <= toCol; col++ {
			vals = append(vals, sh[cell{row, col}])
		}
		for len(vals) > 0 && vals[len(vals)-1] == "" {
			vals = vals[:len(vals)-1]
		}
		out = append(out, vals)
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Update implements holdingsync.Table.
func (s *Store) Update(_ context.Context, rng string, values [][]any) error {
	return s.UpdateWithOption(rng, values, "USER_ENTERED")
}

// UpdateWithOption writes values and records the value input option.
func (s *Store) UpdateWithOption(rng string, values [][]any, inputOption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpUpdate, rng, inputOption); err != nil {
		return err
	}
	return s.write(rng, values)
}

func (s *Store) write(rng string, values [][]any) error {
	r, err := a1.Parse(rng)
	if err != nil {
		return err
	}
	fromRow, fromCol := max(r.FromRow, 1), max(r.FromCol, 1)
	for i, row := range values {
		if r.ToRow != 0 && fromRow+i > r.ToRow {
			return fmt.Errorf("update %s: %d rows do not fit", rng, len(values))
		}
		for j := range row {
			if r.ToCol != 0 && fromCol+j > r.ToCol {
				return fmt.Errorf("update %s: %d columns do not fit", rng, len(row))
			}
		}
	}
	sh := s.sheet(r.Sheet)
	for i, row := range values {
		for j, v := range row {
			c := cell{fromRow + i, fromCol + j}
			text := ""
			if v != nil {
				text = fmt.Sprint(v)
			}
			if text == "" {
				delete(sh, c)
				continue
			}
			sh[c] = text
		}
	}
	return nil
}

// BatchUpdate implements holdingsync.Table. Ranges are validated before any
// is written.
func (s *Store) BatchUpdate(_ context.Context, data []holdingsync.RangeValues) error {
	return s.BatchUpdateWithOption(data, "USER_ENTERED")
}

// BatchUpdateWithOption writes all ranges in one call.
func (s *Store) BatchUpdateWithOption(data []holdingsync.RangeValues, inputOption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpBatchUpdate, fmt.Sprintf("%d ranges", len(data)), inputOption); err != nil {
		return err
	}
	for _, d := range data {
		if _, err := a1.Parse(d.Range); err != nil {
			return err
		}
	}
	for _, d := range data {
		if err := s.write(d.Range, d.Values); err != nil {
			return err
		}
	}
	return nil
}

// Append implements holdingsync.Table: rows go after the last occupied row
// within the range's columns.
func (s *Store) Append(_ context.Context, rng string, values [][]any) error {
	return s.AppendWithOption(rng, values, "USER_ENTERED")
}

// AppendWithOption appends and records the value input option.
func (s *Store) AppendWithOption(rng string, values [][]any, inputOption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpAppend, rng, inputOption); err != nil {
		return err
	}
	r, err := a1.Parse(rng)
	if err != nil {
		return err
	}
	sh := s.sheet(r.Sheet)
	last := 0
	for c := range sh {
		if r.Contains(c.col, c.row) {
			last = max(last, c.row)
		}
	}
	if len(values) == 0 {
		return nil
	}
	width := 1
	for _, row := range values {
		width = max(width, len(row))
	}
	fromCol := max(r.FromCol, 1)
	toCol := fromCol + width - 1
	if r.ToCol != 0 {
		toCol = r.ToCol
	}
	start := max(last+1, r.FromRow, 1)
	target := a1.Sheet(r.Sheet, a1.Rect(fromCol, start, toCol, start+len(values)-1))
	return s.write(target, values)
}

// Clear implements holdingsync.Table.
func (s *Store) Clear(_ context.Context, rng string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpClear, rng, ""); err != nil {
		return err
	}
	r, err := a1.Parse(rng)
	if err != nil {
		return err
	}
	sh := s.sheet(r.Sheet)
	for c := range sh {
		if r.Contains(c.col, c.row) {
			delete(sh, c)
		}
	}
	return nil
}

// Set writes one cell without recording a call.
func (s *Store) Set(sheet string, row, col int, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.sheet(sheet), cell{row, col})
		return
	}
	s.sheet(sheet)[cell{row, col}] = value
}

// SetRow writes values from column A of row without recording a call.
func (s *Store) SetRow(sheet string, row int, values ...string) {
	for i, v := range values {
		s.Set(sheet, row, i+1, v)
	}
}

// Cell reads one cell without recording a call.
func (s *Store) Cell(sheet string, row, col int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheet(sheet)[cell{row, col}]
}

// Rows dumps a whole sheet from A1, trimmed like Get, without recording a
// call.
func (s *Store) Rows(sheet string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, _ := s.read(a1.Sheet(sheet, "A1:ZZ"))
	return rows
}

// Calls returns a copy of the recorded calls.
func (s *Store) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount counts recorded calls of op.
func (s *Store) CallCount(op string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls.
func (s *Store) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
	s.last = time.Time{}
}
