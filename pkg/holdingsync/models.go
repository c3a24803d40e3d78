package holdingsync

import "holdingsync/internal/a1"

// Export column names of the broker holdings CSV.
const (
	FieldSymbol         = "Symbol"
	FieldName           = "Name"
	FieldAccount        = "Account Name"
	FieldQuantity       = "Quantity"
	FieldBookValue      = "Book Value (Market)"
	FieldUnrealizedGain = "Market Unrealized Returns"
	FieldExchange       = "Exchange"
)

// RawRecord is one export row keyed by header name.
type RawRecord map[string]string

// Holding is the canonical form of one position in one account.
type Holding struct {
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Account        string `json:"account"`
	Quantity       Amount `json:"quantity"`
	BookValue      Amount `json:"book_value"`
	AvgPrice       Amount `json:"avg_price"`
	UnrealizedGain string `json:"unrealized_gain"`
	Exchange       string `json:"exchange"`
	QuoteSymbol    string `json:"quote_symbol"`
}

// Column is a 1-based destination column.
type Column int

// Destination columns in their fixed order.
const (
	ColSymbol Column = iota + 1
	ColName
	ColAccount
	ColQuantity
	ColAvgPrice
	ColCurrentPrice
	ColMarketValue
	ColCostBasis
	ColGainLoss
	ColReturnRatio
	ColLastUpdated
)

// ColumnCount is the width of the destination table.
const ColumnCount = int(ColLastUpdated)

// Letter returns the A1 letters of the column.
func (c Column) Letter() string {
	return a1.Column(int(c))
}

// Headers is the fixed header row.
var Headers = []string{
	"Symbol",
	"Name",
	"Account",
	"Quantity",
	"Avg Price",
	"Current Price",
	"Market Value",
	"Cost Basis",
	"Gain/Loss",
	"% Return",
	"Last Updated",
}

// FormulaColumns are evaluated by the remote store, written in this order.
var FormulaColumns = []Column{ColCurrentPrice, ColMarketValue, ColCostBasis, ColReturnRatio, ColLastUpdated}

// LiteralWidth is the span of the literal block, A through the gain column.
const LiteralWidth = int(ColGainLoss)

// IsFormula reports whether c holds a remote-evaluated formula.
func (c Column) IsFormula() bool {
	for _, f := range FormulaColumns {
		if f == c {
			return true
		}
	}
	return false
}

// FormulaCell is the formula text for one column of a row.
type FormulaCell struct {
	Column Column
	Text   string
}

// CompiledRow is the payload for one destination row. Literals span A..I with
// empty placeholders in the formula columns F..H; Formulas target F,G,H,J,K.
type CompiledRow struct {
	Row      int
	Holding  Holding
	Literals []any
	Formulas []FormulaCell
}

// Formula returns the formula text for c, or "".
func (r CompiledRow) Formula(c Column) string {
	for _, f := range r.Formulas {
		if f.Column == c {
			return f.Text
		}
	}
	return ""
}
