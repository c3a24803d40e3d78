package holdingsync

import (
	"fmt"
	"strings"
)

// FirstDataRow is the first row below the header.
const FirstDataRow = 2

// Compile assigns contiguous rows from startRow, in input order, and builds
// the literal block and formula cells of each holding.
func Compile(holdings []Holding, startRow int) []CompiledRow {
	if startRow < FirstDataRow {
		startRow = FirstDataRow
	}
	rows := make([]CompiledRow, 0, len(holdings))
	for i, h := range holdings {
		r := startRow + i
		rows = append(rows, CompiledRow{
			Row:      r,
			Holding:  h,
			Literals: literalCells(h),
			Formulas: FormulaCells(h.QuoteSymbol, r),
		})
	}
	return rows
}

func literalCells(h Holding) []any {
	avg := "0"
	if h.Quantity.IsPositive() {
		avg = h.AvgPrice.StringFixed(2)
	}
	return []any{
		h.Symbol,
		h.Name,
		h.Account,
		h.Quantity.String(),
		avg,
		"", "", "",
		h.UnrealizedGain,
	}
}

// FormulaCells renders the five formula templates for row r.
func FormulaCells(quoteSymbol string, r int) []FormulaCell {
	ref := func(c Column) string { return fmt.Sprintf("%s%d", c.Letter(), r) }
	return []FormulaCell{
		{ColCurrentPrice, fmt.Sprintf(`=GOOGLEFINANCE("%s")`, strings.ReplaceAll(quoteSymbol, `"`, `""`))},
		{ColMarketValue, fmt.Sprintf("=%s*%s", ref(ColQuantity), ref(ColCurrentPrice))},
		{ColCostBasis, fmt.Sprintf("=%s*%s", ref(ColQuantity), ref(ColAvgPrice))},
		{ColReturnRatio, fmt.Sprintf("=IF(%s=0,0,%s/%s)", ref(ColCostBasis), ref(ColGainLoss), ref(ColCostBasis))},
		{ColLastUpdated, "=TODAY()"},
	}
}

// LiteralBlock returns the rectangular literal payload for rows.
func LiteralBlock(rows []CompiledRow) [][]any {
	block := make([][]any, len(rows))
	for i, r := range rows {
		block[i] = r.Literals
	}
	return block
}
