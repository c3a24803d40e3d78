package holdingsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"holdingsync/internal/a1"
)

// DefaultWriteDelay is the minimum spacing between remote calls that keeps a
// run under the store's request-rate ceiling.
const DefaultWriteDelay = 100 * time.Millisecond

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Sheet  string
	Delay  time.Duration
	Logger *slog.Logger
}

// Gateway is the only component that talks to the remote table. Every call
// waits on a single limiter so consecutive calls are at least Delay apart.
type Gateway struct {
	table   Table
	sheet   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewGateway wraps table. A zero delay disables spacing.
func NewGateway(table Table, opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Gateway{
		table:   table,
		sheet:   opts.Sheet,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// Range qualifies an A1 range with the gateway's sheet.
func (g *Gateway) Range(rng string) string {
	return a1.Sheet(g.sheet, rng)
}

func (g *Gateway) wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

// SetHeaders overwrites row 1 with the fixed header text.
func (g *Gateway) SetHeaders(ctx context.Context) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	row := make([]any, len(Headers))
	for i, h := range Headers {
		row[i] = h
	}
	rng := g.Range(a1.Rect(1, 1, ColumnCount, 1))
	if err := g.table.Update(ctx, rng, [][]any{row}); err != nil {
		return fmt.Errorf("set headers %s: %w", rng, err)
	}
	return nil
}

// ClearRange blanks every cell in rng (relative to the gateway's sheet).
func (g *Gateway) ClearRange(ctx context.Context, rng string) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	full := g.Range(rng)
	if err := g.table.Clear(ctx, full); err != nil {
		return fmt.Errorf("clear %s: %w", full, err)
	}
	return nil
}

// WriteLiterals writes the literal block of rows starting at startRow in a
// single remote call.
func (g *Gateway) WriteLiterals(ctx context.Context, startRow int, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if startRow < 1 {
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid start row %d", startRow))
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	if err := g.wait(ctx); err != nil {
		return err
	}
	rng := g.Range(a1.Rect(1, startRow, width, startRow+len(rows)-1))
	if err := g.table.Update(ctx, rng, rows); err != nil {
		return fmt.Errorf("write literals %s: %w", rng, err)
	}
	return nil
}

// WriteFormula writes a single formula cell. A failure is logged and returned
// as a CELL_WRITE_FAILURE; it never affects other cells.
func (g *Gateway) WriteFormula(ctx context.Context, row int, col Column, text string) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	cell := a1.Cell(int(col), row)
	if err := g.table.Update(ctx, g.Range(cell), [][]any{{text}}); err != nil {
		g.logger.Warn("formula write failed", "row", row, "column", col.Letter(), "formula", text, "err", err)
		return WrapError(ErrCodeCellWrite, "write formula "+cell, CellFailure{Row: row, Column: col.Letter(), Err: err})
	}
	g.logger.Debug("formula written", "cell", cell, "formula", text)
	return nil
}

// WriteFormulas writes every formula cell of row in column order and returns
// the cells that failed. Context cancellation stops early and is returned as
// the error.
func (g *Gateway) WriteFormulas(ctx context.Context, row CompiledRow) ([]CellFailure, error) {
	var failures []CellFailure
	for _, f := range row.Formulas {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		err := g.WriteFormula(ctx, row.Row, f.Column, f.Text)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return failures, ctx.Err()
		}
		var cf CellFailure
		if !errors.As(err, &cf) {
			cf = CellFailure{Row: row.Row, Column: f.Column.Letter(), Err: err}
		}
		failures = append(failures, cf)
	}
	return failures, nil
}

// WriteFormulasBatch writes the formula cells of all rows in one multi-range
// call. Row and column targets are the same as WriteFormulas.
func (g *Gateway) WriteFormulasBatch(ctx context.Context, rows []CompiledRow) error {
	var data []RangeValues
	for _, r := range rows {
		for _, f := range r.Formulas {
			data = append(data, RangeValues{
				Range:  g.Range(a1.Cell(int(f.Column), r.Row)),
				Values: [][]any{{f.Text}},
			})
		}
	}
	if len(data) == 0 {
		return nil
	}
	if err := g.wait(ctx); err != nil {
		return err
	}
	if err := g.table.BatchUpdate(ctx, data); err != nil {
		return WrapError(ErrCodeCellWrite, fmt.Sprintf("batch write %d formulas", len(data)), err)
	}
	return nil
}

// ReadRange returns the values in rng. Absent cells are simply missing from
// the result; use CellAt to read positions safely.
func (g *Gateway) ReadRange(ctx context.Context, rng string) ([][]string, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	full := g.Range(rng)
	values, err := g.table.Get(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return values, nil
}

// ReadSheetRange reads a range qualified with another sheet of the same
// spreadsheet.
func (g *Gateway) ReadSheetRange(ctx context.Context, sheet, rng string) ([][]string, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	full := a1.Sheet(sheet, rng)
	values, err := g.table.Get(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", full, err)
	}
	return values, nil
}

// AppendRows appends rows after the last occupied row of rng on sheet.
func (g *Gateway) AppendRows(ctx context.Context, sheet, rng string, rows [][]any) error {
	if err := g.wait(ctx); err != nil {
		return err
	}
	full := a1.Sheet(sheet, rng)
	if err := g.table.Append(ctx, full, rows); err != nil {
		return fmt.Errorf("append %s: %w", full, err)
	}
	return nil
}

// CellAt returns values[row][col] (0-based) or "" when absent.
func CellAt(values [][]string, row, col int) string {
	if row < 0 || row >= len(values) || col < 0 || col >= len(values[row]) {
		return ""
	}
	return values[row][col]
}
