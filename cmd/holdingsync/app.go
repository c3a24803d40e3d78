package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"holdingsync/internal/config"
	"holdingsync/internal/logging"
	"holdingsync/internal/render"
	"holdingsync/pkg/holdingsync"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	now              = time.Now
)

// newTable opens the remote spreadsheet. Tests replace it.
var newTable = func(ctx context.Context, s config.Settings) (holdingsync.Table, error) {
	if s.SpreadsheetID == "" {
		return nil, holdingsync.NewError(holdingsync.ErrCodeSetup, "no spreadsheet id configured (set "+config.EnvSheetID+")")
	}
	opts, err := holdingsync.CredentialOptions(s.CredentialsJSON, s.CredentialsFile)
	if err != nil {
		return nil, err
	}
	return holdingsync.NewSheetsTable(ctx, s.SpreadsheetID, opts...)
}

// globals holds the flags shared by every command.
type globals struct {
	dataDir string
	envFile string
	style   string
}

func registerGlobals(fs *flag.FlagSet) *globals {
	g := &globals{}
	fs.StringVar(&g.dataDir, "data-dir", "", "Directory for logs and the run journal")
	fs.StringVar(&g.envFile, "env-file", "", "Load environment variables from this file (default ./.env when present)")
	fs.StringVar(&g.style, "style", "", "Terminal style for rendered output (dark, light, notty; default auto)")
	return g
}

// app is the per-invocation environment of a command.
type app struct {
	settings  config.Settings
	logger    *slog.Logger
	logWriter *logging.DailyWriter
	table     holdingsync.Table
	journal   *holdingsync.Journal
	style     string
}

// openApp resolves configuration, logging, the remote table and the journal.
// A remote setup failure does not fail openApp: the table is replaced by one
// whose every call reports the setup error.
func openApp(ctx context.Context, g *globals) (*app, error) {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		config.SetRuntimeDataDir(g.dataDir)
	}
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings, style: g.style}
	logDir, err := config.GetLogDir()
	if err != nil {
		logDir = ""
	}
	a.logger, a.logWriter, err = logging.NewLogger(logDir, slog.LevelInfo)
	if err != nil {
		a.logger, _, _ = logging.NewLogger("", slog.LevelInfo)
		a.logger.Warn("file logging unavailable", "dir", logDir, "err", err)
	}

	table, err := newTable(ctx, settings)
	if err != nil {
		a.logger.Error("spreadsheet setup failed; remote calls will fail", "err", err)
		table = holdingsync.Unavailable(err)
	}
	a.table = table

	journalPath, err := config.GetJournalPath(settings)
	if err != nil {
		a.logger.Warn("journal path unavailable", "err", err)
	} else if journalPath != "" {
		j, err := holdingsync.OpenJournal(journalPath, a.logger)
		if err != nil {
			a.logger.Warn("journal disabled", "path", journalPath, "err", err)
		} else {
			a.journal = j
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Error("failed to close journal", "err", err)
		}
	}
	if a.logWriter != nil {
		_ = a.logWriter.Close()
	}
}

// recorder returns the journal as a Recorder, or nil when disabled.
func (a *app) recorder() holdingsync.Recorder {
	if a.journal == nil {
		return nil
	}
	return a.journal
}

// writeDelay maps the configured delay onto Options.WriteDelay, where zero
// means the default and negative disables spacing.
func (a *app) writeDelay() time.Duration {
	if a.settings.WriteDelay <= 0 {
		return -1
	}
	return a.settings.WriteDelay
}

func (a *app) gateway() *holdingsync.Gateway {
	return holdingsync.NewGateway(a.table, holdingsync.GatewayOptions{
		Sheet:  a.settings.HoldingsSheet,
		Delay:  a.settings.WriteDelay,
		Logger: a.logger,
	})
}

func (a *app) reportSheets() holdingsync.ReportSheets {
	return holdingsync.ReportSheets{Dashboard: a.settings.DashboardSheet, Reports: a.settings.ReportsSheet}
}

func (a *app) today() string {
	return holdingsync.TodayISO(now(), holdingsync.LoadLocation(a.settings.TimeZone))
}

// printMarkdown writes markdown as is when raw, else rendered for the
// terminal. Rendering errors fall back to the raw text.
func (a *app) printMarkdown(markdown string, raw bool) {
	if !raw {
		out, err := render.Terminal(markdown, a.style)
		if err == nil {
			fmt.Fprint(stdout, out)
			return
		}
		a.logger.Warn("terminal rendering failed", "err", err)
	}
	fmt.Fprint(stdout, markdown)
}

func fail(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
}
