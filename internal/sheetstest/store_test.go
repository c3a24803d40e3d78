package sheetstest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"holdingsync/pkg/holdingsync"
)

func TestStoreUpdateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Update(ctx, "Holdings Detail!A1:C2", [][]any{{"Symbol", "Name", "Account"}, {"XEQT", nil, 3}}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := s.Get(ctx, "Holdings Detail!A1:K5")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := [][]string{{"Symbol", "Name", "Account"}, {"XEQT", "", "3"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Get = %#v, want %#v", got, want)
	}
}

func TestStoreUpdateRejectsOverflow(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), "S!A1:B1", [][]any{{"a", "b", "c"}})
	if err == nil {
		t.Fatal("expected error for values wider than range")
	}
	if got := s.Rows("S"); len(got) != 0 {
		t.Fatalf("nothing should be written, got %v", got)
	}
}

func TestStoreGetOpenEndedRange(t *testing.T) {
	s := New()
	s.SetRow("S", 1, "Symbol")
	s.SetRow("S", 2, "A")
	s.SetRow("S", 3, "")
	s.SetRow("S", 4, "B")

	got, err := s.Get(context.Background(), "S!A2:A")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := [][]string{{"A"}, {}, {"B"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Get = %#v, want %#v", got, want)
	}
}

func TestStoreClear(t *testing.T) {
	s := New()
	s.SetRow("S", 1, "h1", "h2")
	s.SetRow("S", 2, "a", "b")
	s.SetRow("S", 3, "c", "d")

	if err := s.Clear(context.Background(), "S!A2:B10"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	want := [][]string{{"h1", "h2"}}
	if got := s.Rows("S"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Rows = %#v, want %#v", got, want)
	}
}

func TestStoreAppend(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SetRow("Daily Reports", 1, "Date", "Net Worth", "Savings Rate", "Investment Return")
	s.Set("Daily Reports", 7, 6, "outside")

	if err := s.Append(ctx, "Daily Reports!A:D", [][]any{{"2024-01-02", "1", "2", "3"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, "Daily Reports!A:D", [][]any{{"2024-01-03", "4", "5", "6"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := s.Cell("Daily Reports", 2, 1); got != "2024-01-02" {
		t.Fatalf("row 2 = %q", got)
	}
	if got := s.Cell("Daily Reports", 3, 4); got != "6" {
		t.Fatalf("row 3 col D = %q", got)
	}
}

func TestStoreAppendRowsWithinColumns(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows := [][]any{{"2024-01-02", "1", "2", "3"}, {"2024-01-03", "4"}}
	if err := s.Append(ctx, "Log!A:D", rows); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if s.Cell("Log", 1, 4) != "3" || s.Cell("Log", 2, 2) != "4" {
		t.Fatalf("rows = %v", s.Rows("Log"))
	}
	if err := s.Append(ctx, "Log!C:D", [][]any{{"x"}}); err != nil {
		t.Fatalf("Append C:D: %v", err)
	}
	if got := s.Cell("Log", 2, 3); got != "x" {
		t.Fatalf("C2 = %q, want the first free row within C:D", got)
	}
	if err := s.Append(ctx, "Log!A:B", [][]any{{"a", "b", "c"}}); err == nil {
		t.Fatal("expected a row wider than A:B to be rejected")
	}
	if err := s.Append(ctx, "Log!A:D", nil); err != nil {
		t.Fatalf("empty append: %v", err)
	}
}

func TestStoreBatchUpdate(t *testing.T) {
	s := New()
	err := s.BatchUpdate(context.Background(), []holdingsync.RangeValues{
		{Range: "S!F2", Values: [][]any{{"=GOOGLEFINANCE(\"TSE:XEQT\")"}}},
		{Range: "S!K2", Values: [][]any{{"=TODAY()"}}},
	})
	if err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if s.Cell("S", 2, 6) == "" || s.Cell("S", 2, 11) != "=TODAY()" {
		t.Fatalf("batch cells not written: %v", s.Rows("S"))
	}
	if n := s.CallCount(OpBatchUpdate); n != 1 {
		t.Fatalf("batch calls = %d, want 1", n)
	}
}

func TestStoreFailFunc(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailFunc = func(op, rng string) error {
		if op == OpUpdate && rng == "S!G2" {
			return boom
		}
		return nil
	}
	ctx := context.Background()
	if err := s.Update(ctx, "S!G2", [][]any{{"x"}}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := s.Update(ctx, "S!H2", [][]any{{"y"}}); err != nil {
		t.Fatalf("H2: %v", err)
	}
	if s.Cell("S", 2, 7) != "" || s.Cell("S", 2, 8) != "y" {
		t.Fatalf("unexpected cells: %v", s.Rows("S"))
	}
	calls := s.Calls()
	if len(calls) != 2 || calls[0].InputOption != "USER_ENTERED" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestStoreMinInterval(t *testing.T) {
	s := New()
	s.MinInterval = time.Hour
	ctx := context.Background()
	if _, err := s.Get(ctx, "S!A1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := s.Get(ctx, "S!A1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call err = %v, want ErrRateLimited", err)
	}
	s.ResetCalls()
	if _, err := s.Get(ctx, "S!A1"); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}
