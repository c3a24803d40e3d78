package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"holdingsync/internal/render"
	"holdingsync/pkg/holdingsync"
)

type refreshCmd struct {
	g      *globals
	csvDir string
	batch  bool
	report bool
	asJSON bool
	raw    bool
}

func (*refreshCmd) Name() string     { return "refresh" }
func (*refreshCmd) Synopsis() string { return "rebuild the holdings sheet from the CSV exports" }
func (*refreshCmd) Usage() string {
	return `holdingsync refresh [-csv-dir <dir>] [-batch-formulas] [-report] [-json] [-raw]

  Writes the header row, clears the holdings body and rewrites one row per
  holding found in the CSV exports. Formula cells are written separately so
  a failed cell never blocks the rest of the run.
`
}

func (c *refreshCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.csvDir, "csv-dir", "", "Directory holding the CSV exports (default from config)")
	f.BoolVar(&c.batch, "batch-formulas", false, "Write each file's formulas in a single batch call")
	f.BoolVar(&c.report, "report", false, "Append the daily report after a successful refresh")
	f.BoolVar(&c.asJSON, "json", false, "Print the run report as JSON")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fail("unexpected arguments: %v", f.Args())
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx, c.g)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	csvDir := c.csvDir
	if csvDir == "" {
		csvDir = a.settings.CSVDir
	}
	refresher, err := holdingsync.NewRefresher(holdingsync.Options{
		Table:         a.table,
		Source:        holdingsync.DirSource{Dir: csvDir},
		Logger:        a.logger,
		Journal:       a.recorder(),
		Sheet:         a.settings.HoldingsSheet,
		WriteDelay:    a.writeDelay(),
		ClearRows:     a.settings.ClearRows,
		BatchFormulas: c.batch,
		Now:           now,
	})
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}

	rep, runErr := refresher.Run(ctx)
	var daily *holdingsync.DailyReport
	if runErr == nil && c.report {
		d, err := holdingsync.GenerateDailyReport(ctx, refresher.Gateway(), a.reportSheets(), a.today(), a.logger)
		if err != nil {
			a.logger.Error("daily report failed", "err", err)
		} else {
			daily = &d
		}
	}

	if c.asJSON {
		out := struct {
			*holdingsync.RunReport
			Daily *holdingsync.DailyReport `json:"daily_report,omitempty"`
			Error string                   `json:"error,omitempty"`
		}{RunReport: rep, Daily: daily}
		if runErr != nil {
			out.Error = runErr.Error()
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fail("encode report: %v", err)
		}
	} else {
		markdown := render.RefreshMarkdown(rep, a.settings.Currency)
		if daily != nil {
			markdown += "\n" + render.DailyReportMarkdown(*daily)
		}
		a.printMarkdown(markdown, c.raw)
	}

	if runErr != nil {
		fail("%v", runErr)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
