package holdingsync_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"holdingsync/internal/sheetstest"
	"holdingsync/pkg/holdingsync"
)

const (
	holdingsSheet = holdingsync.DefaultHoldingsSheet
	exportHeader  = "Symbol,Name,Account Name,Quantity,Book Value (Market),Market Unrealized Returns,Exchange\n"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memSource serves export files from memory in the listed order.
type memSource struct {
	names   []string
	files   map[string]string
	listErr error
	openErr map[string]error
	panicOn string
}

func newSource() *memSource {
	return &memSource{files: map[string]string{}, openErr: map[string]error{}}
}

func (s *memSource) add(name, body string) *memSource {
	s.names = append(s.names, name)
	s.files[name] = exportHeader + body
	return s
}

func (s *memSource) Files(context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.names, nil
}

func (s *memSource) Open(name string) (io.ReadCloser, error) {
	if name == s.panicOn {
		panic("reader exploded")
	}
	if err := s.openErr[name]; err != nil {
		return nil, err
	}
	body, ok := s.files[name]
	if !ok {
		return nil, errors.New("no such file " + name)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func newRefresher(t *testing.T, table holdingsync.Table, src holdingsync.Source, mutate ...func(*holdingsync.Options)) *holdingsync.Refresher {
	t.Helper()
	opts := holdingsync.Options{
		Table:      table,
		Source:     src,
		Logger:     quietLogger(),
		WriteDelay: -1,
		Now:        func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
	for _, m := range mutate {
		m(&opts)
	}
	r, err := holdingsync.NewRefresher(opts)
	if err != nil {
		t.Fatalf("NewRefresher: %v", err)
	}
	return r
}

func newGateway(table holdingsync.Table, delay time.Duration) *holdingsync.Gateway {
	return holdingsync.NewGateway(table, holdingsync.GatewayOptions{Sheet: holdingsSheet, Delay: delay, Logger: quietLogger()})
}

// failOn fails calls of op whose range equals rng.
func failOn(op, rng string) func(string, string) error {
	return func(gotOp, gotRng string) error {
		if gotOp == op && gotRng == rng {
			return fmt.Errorf("injected failure on %s %s", op, rng)
		}
		return nil
	}
}

func cell(store *sheetstest.Store, row int, col holdingsync.Column) string {
	return store.Cell(holdingsSheet, row, int(col))
}

// recorder collects journal entries in memory.
type recorder struct {
	entries []holdingsync.JournalEntry
}

func (r *recorder) Record(_ context.Context, e holdingsync.JournalEntry) (int64, error) {
	r.entries = append(r.entries, e)
	return int64(len(r.entries)), nil
}

func (r *recorder) ops() []string {
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Operation)
	}
	return out
}
