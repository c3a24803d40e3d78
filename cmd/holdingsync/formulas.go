package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"holdingsync/internal/render"
	"holdingsync/pkg/holdingsync"
)

type formulasCmd struct {
	g   *globals
	raw bool
}

func (*formulasCmd) Name() string     { return "formulas" }
func (*formulasCmd) Synopsis() string { return "rewrite the formula columns of existing holdings rows" }
func (*formulasCmd) Usage() string {
	return `holdingsync formulas [-raw]

  Clears and rewrites the price, value, cost, return and date formulas for
  every row that has a symbol, without touching the literal columns.
`
}

func (c *formulasCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *formulasCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, c.g)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer a.Close()

	res, err := holdingsync.RepairFormulas(ctx, a.gateway(), a.settings.ClearRows, nil, a.logger)
	if err != nil {
		fail("formula repair: %v", err)
		return subcommands.ExitFailure
	}
	a.printMarkdown(render.RepairMarkdown(res), c.raw)
	return subcommands.ExitSuccess
}
