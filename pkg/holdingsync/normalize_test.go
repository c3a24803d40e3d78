package holdingsync

import (
	"errors"
	"testing"
)

func TestQuoteSymbol(t *testing.T) {
	cases := []struct {
		symbol, exchange, want string
	}{
		{"XEQT.TO", "", "TSE:XEQT"},
		{"xeqt.to", "", "TSE:xeqt"},
		{"ABC.TO", "TSX", "TSE:ABC"},
		{"VFV", "TSX", "TSE:VFV"},
		{"VFV", " tsx ", "TSE:VFV"},
		{"AAPL", "NASDAQ", "AAPL"},
		{"BRK.B", "NYSE", "BRK.B"},
		{"SHOP", "", "SHOP"},
		{"TO", "", "TO"},
	}
	for _, tc := range cases {
		assertString(t, QuoteSymbol(tc.symbol, tc.exchange, DefaultVenues), tc.want, tc.symbol+"@"+tc.exchange)
	}
	assertString(t, QuoteSymbol("XEQT.TO", "TSX", nil), "XEQT.TO", "no rules")
}

func TestQuoteSymbolCustomVenues(t *testing.T) {
	venues := append([]VenueRule{{Exchange: "TSXV", Suffix: ".V", QuotePrefix: "CVE"}}, DefaultVenues...)
	assertString(t, QuoteSymbol("ABC.V", "", venues), "CVE:ABC", "venture suffix")
	assertString(t, QuoteSymbol("XYZ", "TSXV", venues), "CVE:XYZ", "venture exchange")
	assertString(t, QuoteSymbol("XEQT.TO", "", venues), "TSE:XEQT", "default rule kept")
}

func TestNormalize(t *testing.T) {
	n := Normalizer{}
	h, err := n.Normalize(RawRecord{
		FieldSymbol:         " XEQT.TO ",
		FieldName:           "iShares Core Equity ETF ",
		FieldAccount:        "TFSA",
		FieldQuantity:       "10",
		FieldBookValue:      "$1,000.50",
		FieldUnrealizedGain: "25.10",
		FieldExchange:       "TSX",
	})
	assertNoError(t, err, "Normalize")
	assertString(t, h.Symbol, "XEQT.TO", "symbol")
	assertString(t, h.Name, "iShares Core Equity ETF", "name")
	assertString(t, h.Account, "TFSA", "account")
	assertString(t, h.Quantity.String(), "10", "quantity")
	assertString(t, h.BookValue.String(), "1000.5", "book value")
	assertString(t, h.AvgPrice.StringFixed(2), "100.05", "avg price")
	assertString(t, h.UnrealizedGain, "25.10", "gain")
	assertString(t, h.QuoteSymbol, "TSE:XEQT", "quote symbol")
}

func TestNormalizeLenientNumbers(t *testing.T) {
	h, err := Normalizer{}.Normalize(RawRecord{FieldSymbol: "AAPL", FieldQuantity: "n/a", FieldBookValue: "abc"})
	assertNoError(t, err, "Normalize")
	if !h.Quantity.IsZero() || !h.BookValue.IsZero() || !h.AvgPrice.IsZero() {
		t.Fatalf("expected zeros, got %+v", h)
	}
	assertString(t, h.QuoteSymbol, "AAPL", "passthrough")
}

func TestNormalizeMissingSymbol(t *testing.T) {
	for _, rec := range []RawRecord{{}, {FieldSymbol: "   ", FieldName: "Cash"}} {
		_, err := Normalizer{}.Normalize(rec)
		assertError(t, err, "missing symbol")
		if !IsErrorCode(err, ErrCodeSkippedRecord) || !errors.Is(err, ErrMissingSymbol) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestNormalizeAll(t *testing.T) {
	holdings, skipped := Normalizer{}.NormalizeAll([]RawRecord{
		{FieldSymbol: "A"},
		{FieldSymbol: ""},
		{FieldSymbol: "B"},
		{FieldName: "total"},
	})
	if len(holdings) != 2 || holdings[0].Symbol != "A" || holdings[1].Symbol != "B" {
		t.Fatalf("holdings = %+v", holdings)
	}
	if len(skipped) != 2 || skipped[0].Index != 1 || skipped[1].Index != 3 {
		t.Fatalf("skipped = %v", skipped)
	}
	if !IsErrorCode(skipped[0].Err, ErrCodeSkippedRecord) || !errors.Is(skipped[1].Err, ErrMissingSymbol) {
		t.Fatalf("skip errors = %v, %v", skipped[0].Err, skipped[1].Err)
	}
}
