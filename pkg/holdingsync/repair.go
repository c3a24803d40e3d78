package holdingsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"holdingsync/internal/a1"
)

// RepairResult describes a formula repair pass.
type RepairResult struct {
	Rows     []int         `json:"rows"`
	LastRow  int           `json:"last_row"`
	Failures []CellFailure `json:"-"`
	Readback [][]string    `json:"readback"`
}

// RepairFormulas rewrites the formula columns of rows already in the sheet,
// deriving quote symbols from column A alone. Formula columns F:H and J:K are
// cleared first so stale formulas never survive.
func RepairFormulas(ctx context.Context, gw *Gateway, maxRow int, venues []VenueRule, logger *slog.Logger) (RepairResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if venues == nil {
		venues = DefaultVenues
	}
	maxRow = defaultInt(maxRow, DefaultClearRows)

	symbols, err := gw.ReadRange(ctx, a1.Rect(int(ColSymbol), FirstDataRow, int(ColSymbol), maxRow))
	if err != nil {
		return RepairResult{}, err
	}
	var res RepairResult
	for i := range symbols {
		if strings.TrimSpace(CellAt(symbols, i, 0)) != "" {
			res.Rows = append(res.Rows, i+FirstDataRow)
		}
	}
	if len(res.Rows) == 0 {
		logger.Info("no holdings rows to repair")
		return res, nil
	}
	res.LastRow = res.Rows[len(res.Rows)-1]

	for _, span := range [][2]Column{{ColCurrentPrice, ColCostBasis}, {ColReturnRatio, ColLastUpdated}} {
		if err := gw.ClearRange(ctx, a1.Rect(int(span[0]), FirstDataRow, int(span[1]), res.LastRow)); err != nil {
			return res, err
		}
	}
	logger.Info("formula columns cleared", "last_row", res.LastRow)

	for _, r := range res.Rows {
		symbol := strings.TrimSpace(CellAt(symbols, r-FirstDataRow, 0))
		row := CompiledRow{Row: r, Formulas: FormulaCells(QuoteSymbol(symbol, "", venues), r)}
		failures, err := gw.WriteFormulas(ctx, row)
		res.Failures = append(res.Failures, failures...)
		if err != nil {
			return res, err
		}
		logger.Info("formulas set", "row", r, "symbol", symbol)
	}

	readback, err := gw.ReadRange(ctx, a1.Rect(int(ColCurrentPrice), FirstDataRow, int(ColLastUpdated), res.LastRow))
	if err != nil {
		logger.Warn("formula readback failed", "err", err)
		return res, nil
	}
	res.Readback = readback
	for i, row := range readback {
		logger.Debug("formula column values", "row", i+FirstDataRow, "values", fmt.Sprint(row))
	}
	return res, nil
}

// InspectRange is the block dumped by Inspect.
const InspectRange = "A1:W3"

// Inspect returns the header and first data rows of the holdings sheet.
func Inspect(ctx context.Context, gw *Gateway) ([][]string, error) {
	return gw.ReadRange(ctx, InspectRange)
}
