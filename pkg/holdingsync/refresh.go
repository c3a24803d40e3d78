package holdingsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"holdingsync/internal/a1"
)

// DefaultClearRows is the body clear bound used when the sheet reports fewer
// occupied rows.
const DefaultClearRows = 1000

// DefaultHoldingsSheet is the sheet the holdings table lives on.
const DefaultHoldingsSheet = "Holdings Detail"

// RunState is a refresh run's position in its state machine.
type RunState int

// Run states. Failed is terminal and reachable from any other state.
const (
	StateIdle RunState = iota
	StateHeadersSet
	StateCleared
	StatePopulating
	StateDone
	StateFailed
)

var runStateNames = [...]string{"idle", "headers_set", "cleared", "populating", "done", "failed"}

func (s RunState) String() string {
	if s < 0 || int(s) >= len(runStateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return runStateNames[s]
}

// MarshalText renders the state name in JSON reports.
func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Options controls Refresher initialization.
type Options struct {
	Table  Table
	Source Source
	Logger *slog.Logger
	// Journal, when set, receives skipped records, cell and file failures
	// and run outcomes.
	Journal Recorder
	Sheet   string
	// WriteDelay is the minimum spacing between remote calls. Zero means
	// DefaultWriteDelay, negative disables spacing.
	WriteDelay    time.Duration
	ClearRows     int
	Venues        []VenueRule
	BatchFormulas bool
	Now           func() time.Time
}

// Refresher runs full refreshes of the holdings table.
type Refresher struct {
	gw         *Gateway
	source     Source
	logger     *slog.Logger
	journal    Recorder
	normalizer Normalizer
	clearRows  int
	batch      bool
	now        func() time.Time
}

// NewRefresher validates opts and builds a Refresher.
func NewRefresher(opts Options) (*Refresher, error) {
	if opts.Table == nil {
		return nil, WrapError(ErrCodeInvalidInput, "refresher options", ErrNoTable)
	}
	if opts.Source == nil {
		return nil, NewError(ErrCodeInvalidInput, "refresher requires an export source")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.WriteDelay
	if delay == 0 {
		delay = DefaultWriteDelay
	}
	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultHoldingsSheet
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Refresher{
		gw:         NewGateway(opts.Table, GatewayOptions{Sheet: sheet, Delay: max(delay, 0), Logger: logger}),
		source:     opts.Source,
		logger:     logger,
		journal:    opts.Journal,
		normalizer: Normalizer{Venues: opts.Venues},
		clearRows:  defaultInt(opts.ClearRows, DefaultClearRows),
		batch:      opts.BatchFormulas,
		now:        now,
	}, nil
}

// Gateway exposes the refresher's gateway so follow-up operations share its
// rate limiter.
func (r *Refresher) Gateway() *Gateway {
	return r.gw
}

// FileReport summarizes one export file of a run.
type FileReport struct {
	Name         string        `json:"name"`
	Records      int           `json:"records"`
	Skipped      int           `json:"skipped"`
	Rows         int           `json:"rows"`
	FirstRow     int           `json:"first_row,omitempty"`
	LastRow      int           `json:"last_row,omitempty"`
	BookValue    Amount        `json:"book_value"`
	CellFailures []CellFailure `json:"-"`
	Err          error         `json:"-"`
}

// Failed reports whether the file was abandoned.
func (f FileReport) Failed() bool {
	return f.Err != nil
}

// RunReport summarizes a refresh run.
type RunReport struct {
	RunID          string       `json:"run_id"`
	State          RunState     `json:"state"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	HeadersErr     error        `json:"-"`
	ClearedThrough int          `json:"cleared_through"`
	Files          []FileReport `json:"files"`
	RowsWritten    int          `json:"rows_written"`
	Skipped        int          `json:"skipped"`
	CellFailures   int          `json:"cell_failures"`
	FailedFiles    int          `json:"failed_files"`
	BookValue      Amount       `json:"book_value"`
}

func (rep *RunReport) add(fr FileReport) {
	rep.Files = append(rep.Files, fr)
	rep.RowsWritten += fr.Rows
	rep.Skipped += fr.Skipped
	rep.CellFailures += len(fr.CellFailures)
	rep.BookValue = rep.BookValue.Add(fr.BookValue)
	if fr.Failed() {
		rep.FailedFiles++
	}
}

// Run performs one full refresh: headers, body clear, then every export file
// in listing order. File and cell failures are contained; the returned error
// is non-nil only for an ORCHESTRATOR_FAILURE, in which case the report
// holds what was done before the abort.
func (r *Refresher) Run(ctx context.Context) (*RunReport, error) {
	rep := &RunReport{RunID: uuid.NewString(), State: StateIdle, StartedAt: r.now()}
	logger := r.logger.With("run_id", rep.RunID)
	logger.Info("refresh started", "sheet", r.gw.sheet)
	r.record(ctx, logger, JournalEntry{RunID: rep.RunID, Operation: OpRunStarted})

	fail := func(err error) (*RunReport, error) {
		state := rep.State
		rep.State = StateFailed
		rep.FinishedAt = r.now()
		wrapped := WrapError(ErrCodeOrchestrator, "refresh aborted after state "+state.String(), err)
		logger.Error("refresh failed", "state", state.String(), "err", err)
		r.record(context.WithoutCancel(ctx), logger, JournalEntry{RunID: rep.RunID, Operation: OpRunFailed, Details: stringPtr(err.Error())})
		return rep, wrapped
	}

	if err := r.gw.SetHeaders(ctx); err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		rep.HeadersErr = err
		logger.Error("header setup failed; continuing", "err", err)
		r.record(ctx, logger, JournalEntry{RunID: rep.RunID, Operation: OpHeadersFailed, Details: stringPtr(err.Error())})
	} else {
		logger.Info("headers set")
	}
	r.transition(rep, StateHeadersSet, logger)

	bound := r.clearBound(ctx, logger)
	if err := r.gw.ClearRange(ctx, a1.Rect(1, FirstDataRow, ColumnCount, bound)); err != nil {
		return fail(err)
	}
	rep.ClearedThrough = bound
	logger.Info("holdings body cleared", "through_row", bound)
	r.transition(rep, StateCleared, logger)

	files, err := r.source.Files(ctx)
	if err != nil {
		return fail(fmt.Errorf("list export files: %w", err))
	}
	r.transition(rep, StatePopulating, logger)
	if len(files) == 0 {
		logger.Info("no export files found")
	}

	next := FirstDataRow
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		fr := r.processFile(ctx, logger, rep.RunID, name, next)
		next += fr.Rows
		rep.add(fr)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	r.transition(rep, StateDone, logger)
	rep.FinishedAt = r.now()
	summary := fmt.Sprintf("files=%d failed_files=%d rows=%d skipped=%d cell_failures=%d",
		len(rep.Files), rep.FailedFiles, rep.RowsWritten, rep.Skipped, rep.CellFailures)
	logger.Info("refresh completed",
		"files", len(rep.Files),
		"failed_files", rep.FailedFiles,
		"rows", rep.RowsWritten,
		"skipped", rep.Skipped,
		"cell_failures", rep.CellFailures,
		"duration_ms", rep.FinishedAt.Sub(rep.StartedAt).Milliseconds(),
	)
	r.record(ctx, logger, JournalEntry{RunID: rep.RunID, Operation: OpRunCompleted, Details: stringPtr(summary)})
	return rep, nil
}

func (r *Refresher) transition(rep *RunReport, to RunState, logger *slog.Logger) {
	logger.Debug("refresh state", "from", rep.State.String(), "to", to.String())
	rep.State = to
}

// clearBound returns the last body row to clear: the configured bound, or the
// occupied rows of column A when the sheet holds more.
func (r *Refresher) clearBound(ctx context.Context, logger *slog.Logger) int {
	values, err := r.gw.ReadRange(ctx, a1.Cell(int(ColSymbol), FirstDataRow)+":"+ColSymbol.Letter())
	if err != nil {
		logger.Warn("could not read occupied rows; using default clear bound", "bound", r.clearRows, "err", err)
		return r.clearRows
	}
	return max(r.clearRows, len(values)+FirstDataRow-1)
}

func (r *Refresher) processFile(ctx context.Context, logger *slog.Logger, runID, name string, startRow int) (fr FileReport) {
	fr = FileReport{Name: name}
	logger = logger.With("file", name)
	defer func() {
		if p := recover(); p != nil {
			fr = r.fileFailed(ctx, logger, runID, fr, "process", fmt.Errorf("panic: %v", p))
		}
	}()
	logger.Info("processing export file", "start_row", startRow)

	rc, err := r.source.Open(name)
	if err != nil {
		return r.fileFailed(ctx, logger, runID, fr, "open", err)
	}
	records, err := ParseExport(rc)
	_ = rc.Close()
	if err != nil {
		return r.fileFailed(ctx, logger, runID, fr, "parse", err)
	}
	fr.Records = len(records)
	logger.Info("export parsed", "records", len(records))

	holdings, skipped := r.normalizer.NormalizeAll(records)
	fr.Skipped = len(skipped)
	for _, s := range skipped {
		logger.Warn("skipping record", "record", s.Index+1, "err", s.Err)
		r.record(ctx, logger, JournalEntry{
			RunID:     runID,
			Operation: OpRecordSkipped,
			File:      stringPtr(name),
			Details:   stringPtr(fmt.Sprintf("record %d: %v", s.Index+1, s.Err)),
		})
	}
	for _, h := range holdings {
		fr.BookValue = fr.BookValue.Add(h.BookValue)
	}

	rows := Compile(holdings, startRow)
	if len(rows) == 0 {
		logger.Info("no valid records in file")
		return fr
	}
	if err := r.gw.WriteLiterals(ctx, startRow, LiteralBlock(rows)); err != nil {
		return r.fileFailed(ctx, logger, runID, fr, "write literals", err)
	}
	fr.Rows = len(rows)
	fr.FirstRow = rows[0].Row
	fr.LastRow = rows[len(rows)-1].Row
	logger.Info("literal block written", "rows", fr.Rows, "first_row", fr.FirstRow, "last_row", fr.LastRow)

	if r.batch {
		if err := r.gw.WriteFormulasBatch(ctx, rows); err != nil {
			logger.Warn("batched formula write failed", "rows", len(rows), "err", err)
			for _, row := range rows {
				for _, f := range row.Formulas {
					fr.CellFailures = append(fr.CellFailures, CellFailure{Row: row.Row, Column: f.Column.Letter(), Err: err})
				}
			}
			r.record(ctx, logger, JournalEntry{
				RunID:     runID,
				Operation: OpCellFailed,
				File:      stringPtr(name),
				Details:   stringPtr(err.Error()),
			})
		}
	} else {
		for _, row := range rows {
			failures, err := r.gw.WriteFormulas(ctx, row)
			for _, f := range failures {
				fr.CellFailures = append(fr.CellFailures, f)
				r.record(ctx, logger, JournalEntry{
					RunID:     runID,
					Operation: OpCellFailed,
					File:      stringPtr(name),
					Row:       int64Ptr(f.Row),
					Column:    stringPtr(f.Column),
					Symbol:    stringPtr(row.Holding.Symbol),
					Details:   stringPtr(f.Err.Error()),
				})
			}
			if err != nil {
				// cancelled; the run loop turns this into a failure
				return fr
			}
			logger.Debug("row formulas written", "row", row.Row, "symbol", row.Holding.Symbol, "quote_symbol", row.Holding.QuoteSymbol)
		}
	}

	r.record(ctx, logger, JournalEntry{
		RunID:     runID,
		Operation: OpFileWritten,
		File:      stringPtr(name),
		Details:   stringPtr(fmt.Sprintf("rows %d-%d, skipped %d, cell failures %d", fr.FirstRow, fr.LastRow, fr.Skipped, len(fr.CellFailures))),
	})
	return fr
}

func (r *Refresher) fileFailed(ctx context.Context, logger *slog.Logger, runID string, fr FileReport, step string, err error) FileReport {
	fr.Err = WrapError(ErrCodeFileProcessing, step+" "+fr.Name, err)
	logger.Error("file abandoned", "step", step, "err", err)
	r.record(ctx, logger, JournalEntry{
		RunID:     runID,
		Operation: OpFileFailed,
		File:      stringPtr(fr.Name),
		Details:   stringPtr(fmt.Sprintf("%s: %v", step, err)),
	})
	return fr
}

func (r *Refresher) record(ctx context.Context, logger *slog.Logger, e JournalEntry) {
	if r.journal == nil {
		return
	}
	if _, err := r.journal.Record(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("journal write failed", "operation", e.Operation, "err", err)
	}
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
