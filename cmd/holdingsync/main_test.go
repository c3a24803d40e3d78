package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"holdingsync/internal/config"
	"holdingsync/internal/sheetstest"
	"holdingsync/pkg/holdingsync"
)

const exportHeader = "Symbol,Name,Account Name,Quantity,Book Value (Market),Market Unrealized Returns,Exchange\n"

type cli struct {
	store   *sheetstest.Store
	csvDir  string
	dataDir string
	out     bytes.Buffer
	errOut  bytes.Buffer
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv(config.EnvSheetID, "sheet-1")
	t.Setenv(config.EnvWriteDelay, "0s")
	t.Setenv(config.EnvJournal, "")
	t.Setenv(config.EnvDataDir, "")
	t.Setenv(config.EnvTimeZone, "UTC")
	t.Setenv("HOLDINGSYNC_LOG_LEVEL", "error")

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	c := &cli{store: sheetstest.New(), csvDir: t.TempDir(), dataDir: t.TempDir()}
	origTable, origOut, origErr, origNow := newTable, stdout, stderr, now
	newTable = func(context.Context, config.Settings) (holdingsync.Table, error) { return c.store, nil }
	stdout, stderr = &c.out, &c.errOut
	now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() {
		newTable, stdout, stderr, now = origTable, origOut, origErr, origNow
		config.SetRuntimeDataDir("")
		_ = os.Chdir(cwd)
	})
	return c
}

func (c *cli) writeExport(t *testing.T, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(c.csvDir, name), []byte(exportHeader+body), 0o644); err != nil {
		t.Fatalf("write export: %v", err)
	}
}

func (c *cli) run(args ...string) subcommands.ExitStatus {
	c.out.Reset()
	c.errOut.Reset()
	fs := flag.NewFlagSet("holdingsync", flag.ContinueOnError)
	fs.SetOutput(&c.errOut)
	return run(context.Background(), fs, append([]string{"-data-dir", c.dataDir}, args...))
}

func TestRefreshCommand(t *testing.T) {
	c := newCLI(t)
	c.writeExport(t, "a.csv", "XEQT.TO,iShares Core Equity,TFSA,10,300,12.5,TSX\nAAPL,Apple,RRSP,2,400,50,NASDAQ\n")
	c.writeExport(t, "b.csv", ",missing symbol,TFSA,1,1,0,TSX\nVFV,Vanguard S&P 500,TFSA,4,\"$1,000.00\",3,TSX\n")

	if status := c.run("refresh", "-csv-dir", c.csvDir, "-raw"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	rows := c.store.Rows(holdingsync.DefaultHoldingsSheet)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3: %v", len(rows), rows)
	}
	if rows[3][0] != "VFV" || rows[3][4] != "250.00" {
		t.Fatalf("second file row = %v", rows[3])
	}
	if got := c.store.Cell(holdingsync.DefaultHoldingsSheet, 2, 6); got != `=GOOGLEFINANCE("TSE:XEQT")` {
		t.Fatalf("F2 = %q", got)
	}
	out := c.out.String()
	for _, want := range []string{"Holdings Refresh", "a.csv", "b.csv", "$1,700.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRefreshJSONAndReport(t *testing.T) {
	c := newCLI(t)
	c.writeExport(t, "a.csv", "XEQT.TO,iShares,TFSA,10,300,12.5,TSX\n")
	c.store.SetRow(holdingsync.DefaultDashboardSheet, 3, "Net Worth", "$10,000")
	c.store.SetRow(holdingsync.DefaultDashboardSheet, 4, "Savings Rate", "20%")

	if status := c.run("refresh", "-csv-dir", c.csvDir, "-json", "-report"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	var got struct {
		State       string                   `json:"state"`
		RowsWritten int                      `json:"rows_written"`
		Daily       *holdingsync.DailyReport `json:"daily_report"`
	}
	if err := json.Unmarshal(c.out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, c.out.String())
	}
	if got.State != "done" || got.RowsWritten != 1 {
		t.Fatalf("report = %+v", got)
	}
	if got.Daily == nil || got.Daily.Date != "2024-03-01" || got.Daily.InvestmentReturn != "N/A" {
		t.Fatalf("daily = %+v", got.Daily)
	}
	if v := c.store.Cell(holdingsync.DefaultReportsSheet, 1, 2); v != "$10,000" {
		t.Fatalf("appended net worth = %q", v)
	}
}

func TestRefreshSetupFailure(t *testing.T) {
	c := newCLI(t)
	newTable = func(context.Context, config.Settings) (holdingsync.Table, error) {
		return nil, holdingsync.NewError(holdingsync.ErrCodeSetup, "bad credentials")
	}
	c.writeExport(t, "a.csv", "XEQT.TO,iShares,TFSA,10,300,12.5,TSX\n")

	if status := c.run("refresh", "-csv-dir", c.csvDir, "-raw"); status != subcommands.ExitFailure {
		t.Fatalf("status = %v, want failure", status)
	}
	if !strings.Contains(c.errOut.String(), string(holdingsync.ErrCodeOrchestrator)) ||
		!strings.Contains(c.errOut.String(), "bad credentials") {
		t.Fatalf("stderr = %s", c.errOut.String())
	}
	if !strings.Contains(c.out.String(), "failed") {
		t.Fatalf("summary should show the failed state:\n%s", c.out.String())
	}
}

func TestDefaultTableRequiresSheetID(t *testing.T) {
	_, err := newTable(context.Background(), config.Settings{})
	if !holdingsync.IsErrorCode(err, holdingsync.ErrCodeSetup) {
		t.Fatalf("err = %v, want setup failure", err)
	}
	_, err = newTable(context.Background(), config.Settings{SpreadsheetID: "x"})
	if !holdingsync.IsErrorCode(err, holdingsync.ErrCodeSetup) {
		t.Fatalf("missing credentials err = %v", err)
	}
}

func TestInspectCommand(t *testing.T) {
	c := newCLI(t)
	c.store.SetRow(holdingsync.DefaultHoldingsSheet, 1, holdingsync.Headers...)
	c.store.SetRow(holdingsync.DefaultHoldingsSheet, 2, "XEQT.TO", "iShares")

	if status := c.run("inspect", "-raw"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	for _, want := range []string{"Holdings Detail", "Avg Price", "XEQT.TO"} {
		if !strings.Contains(c.out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, c.out.String())
		}
	}
}

func TestFormulasCommand(t *testing.T) {
	c := newCLI(t)
	c.store.SetRow(holdingsync.DefaultHoldingsSheet, 2, "XEQT.TO")
	c.store.SetRow(holdingsync.DefaultHoldingsSheet, 3, "AAPL")

	if status := c.run("formulas", "-raw"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	if got := c.store.Cell(holdingsync.DefaultHoldingsSheet, 3, 6); got != `=GOOGLEFINANCE("AAPL")` {
		t.Fatalf("F3 = %q", got)
	}
	if !strings.Contains(c.out.String(), "2 rows") {
		t.Fatalf("output:\n%s", c.out.String())
	}
}

func TestReportCommandFailure(t *testing.T) {
	c := newCLI(t)
	c.store.FailFunc = func(op, rng string) error {
		if op == sheetstest.OpAppend {
			return errors.New("protected range")
		}
		return nil
	}
	if status := c.run("report", "-raw"); status != subcommands.ExitFailure {
		t.Fatalf("status = %v, want failure", status)
	}
	if !strings.Contains(c.errOut.String(), "protected range") {
		t.Fatalf("stderr = %s", c.errOut.String())
	}
}

func TestFailuresCommand(t *testing.T) {
	c := newCLI(t)
	if status := c.run("failures", "-raw"); status != subcommands.ExitUsageError {
		t.Fatalf("status without journal = %v", status)
	}

	t.Setenv(config.EnvJournal, "journal.db")
	c.writeExport(t, "a.csv", ",no symbol,TFSA,1,1,0,TSX\nAAPL,Apple,RRSP,2,400,50,NASDAQ\n")
	if status := c.run("refresh", "-csv-dir", c.csvDir, "-raw"); status != subcommands.ExitSuccess {
		t.Fatalf("refresh status = %v, stderr: %s", status, c.errOut.String())
	}
	if _, err := os.Stat(filepath.Join(c.dataDir, "journal.db")); err != nil {
		t.Fatalf("journal not created in data dir: %v", err)
	}

	if status := c.run("failures", "-raw", "-limit", "10"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	for _, want := range []string{holdingsync.OpRecordSkipped, holdingsync.OpRunCompleted, "a.csv"} {
		if !strings.Contains(c.out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, c.out.String())
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	c := newCLI(t)
	if status := c.run("bogus"); status != subcommands.ExitUsageError {
		t.Fatalf("status = %v", status)
	}
}

func TestConfigCommand(t *testing.T) {
	c := newCLI(t)
	for _, key := range []string{config.EnvClearRows, config.EnvWriteDelay} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}

	if status := c.run("config", "-csv-dir", "exports", "-clear-rows", "50", "-raw"); status != subcommands.ExitSuccess {
		t.Fatalf("status = %v, stderr: %s", status, c.errOut.String())
	}
	saved, err := config.LoadUserConfig()
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if saved.CSVDir != "exports" || saved.ClearRows != 50 || saved.SpreadsheetID != "" {
		t.Fatalf("saved = %+v", saved)
	}
	out := c.out.String()
	for _, want := range []string{config.ConfigPath(), "exports", "50", "sheet-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if status := c.run("config", "-write-delay", "soon"); status != subcommands.ExitUsageError {
		t.Fatalf("invalid delay status = %v", status)
	}
	if saved, _ := config.LoadUserConfig(); saved.WriteDelay != "" || saved.CSVDir != "exports" {
		t.Fatalf("invalid value was saved: %+v", saved)
	}
}
