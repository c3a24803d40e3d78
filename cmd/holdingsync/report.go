package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"holdingsync/internal/render"
	"holdingsync/pkg/holdingsync"
)

type reportCmd struct {
	g   *globals
	raw bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "append today's line to the daily reports sheet" }
func (*reportCmd) Usage() string {
	return `holdingsync report [-raw]

  Reads net worth, savings rate and investment return from the dashboard
  sheet and appends them with today's date to the daily reports sheet.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, c.g)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer a.Close()

	daily, err := holdingsync.GenerateDailyReport(ctx, a.gateway(), a.reportSheets(), a.today(), a.logger)
	if err != nil {
		fail("daily report: %v", err)
		return subcommands.ExitFailure
	}
	a.printMarkdown(render.DailyReportMarkdown(daily), c.raw)
	return subcommands.ExitSuccess
}
