package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/google/subcommands"

	"holdingsync/internal/config"
	"holdingsync/internal/render"
)

type configCmd struct {
	g       *globals
	cfg     config.UserConfig
	changed bool
	raw     bool
}

func (*configCmd) Name() string     { return "config" }
func (*configCmd) Synopsis() string { return "show or update the saved settings" }
func (*configCmd) Usage() string {
	return `holdingsync config [-sheet-id <id>] [-csv-dir <dir>] [-credentials-file <path>]
    [-journal <path>] [-time-zone <zone>] [-currency <code>] [-write-delay <duration>]
    [-clear-rows <n>] [-raw]

  Saves the given values to the config file, then prints the resolved
  settings. Environment variables still take precedence over the file.
`
}

func (c *configCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cfg.SpreadsheetID, "sheet-id", "", "Spreadsheet id")
	f.StringVar(&c.cfg.CSVDir, "csv-dir", "", "Directory holding the CSV exports")
	f.StringVar(&c.cfg.CredentialsFile, "credentials-file", "", "Service account credentials file")
	f.StringVar(&c.cfg.JournalPath, "journal", "", "Run journal path, relative to the data dir")
	f.StringVar(&c.cfg.TimeZone, "time-zone", "", "IANA zone for report dates")
	f.StringVar(&c.cfg.Currency, "currency", "", "Currency code for book values")
	f.StringVar(&c.cfg.WriteDelay, "write-delay", "", "Minimum spacing between remote calls, e.g. 100ms")
	f.IntVar(&c.cfg.ClearRows, "clear-rows", 0, "Rows cleared below the header on each refresh")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

// merge copies the flags that were set on the command line over saved.
func (c *configCmd) merge(f *flag.FlagSet, saved config.UserConfig) config.UserConfig {
	f.Visit(func(fl *flag.Flag) {
		if fl.Name == "raw" {
			return
		}
		c.changed = true
		switch fl.Name {
		case "sheet-id":
			saved.SpreadsheetID = c.cfg.SpreadsheetID
		case "csv-dir":
			saved.CSVDir = c.cfg.CSVDir
		case "credentials-file":
			saved.CredentialsFile = c.cfg.CredentialsFile
		case "journal":
			saved.JournalPath = c.cfg.JournalPath
		case "time-zone":
			saved.TimeZone = c.cfg.TimeZone
		case "currency":
			saved.Currency = c.cfg.Currency
		case "write-delay":
			saved.WriteDelay = c.cfg.WriteDelay
		case "clear-rows":
			saved.ClearRows = c.cfg.ClearRows
		}
	})
	return saved
}

func (c *configCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 0 {
		fail("unexpected arguments: %v", f.Args())
		return subcommands.ExitUsageError
	}
	if err := config.LoadEnvFile(c.g.envFile); err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	saved, err := config.LoadUserConfig()
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	cfg := c.merge(f, saved)

	settings, err := config.Resolve(cfg)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	path := config.ConfigPath()
	if c.changed {
		if path, err = config.SaveUserConfig(cfg); err != nil {
			fail("save config: %v", err)
			return subcommands.ExitFailure
		}
	}

	a := &app{logger: slog.Default(), style: c.g.style}
	a.printMarkdown(render.SettingsMarkdown(path, settings), c.raw)
	return subcommands.ExitSuccess
}
