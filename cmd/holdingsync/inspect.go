package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"holdingsync/internal/render"
	"holdingsync/pkg/holdingsync"
)

type inspectCmd struct {
	g   *globals
	raw bool
}

func (*inspectCmd) Name() string     { return "inspect" }
func (*inspectCmd) Synopsis() string { return "show the top rows of the holdings sheet" }
func (*inspectCmd) Usage() string {
	return `holdingsync inspect [-raw]

  Prints ` + holdingsync.InspectRange + ` of the holdings sheet.
`
}

func (c *inspectCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *inspectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, c.g)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer a.Close()

	rows, err := holdingsync.Inspect(ctx, a.gateway())
	if err != nil {
		fail("inspect: %v", err)
		return subcommands.ExitFailure
	}
	a.printMarkdown(render.RowsMarkdown(a.settings.HoldingsSheet, rows, 1), c.raw)
	return subcommands.ExitSuccess
}
