package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"holdingsync/internal/config"
	"holdingsync/internal/render"
)

type failuresCmd struct {
	g     *globals
	limit int
	raw   bool
}

func (*failuresCmd) Name() string     { return "failures" }
func (*failuresCmd) Synopsis() string { return "list recent run journal entries" }
func (*failuresCmd) Usage() string {
	return `holdingsync failures [-limit n] [-raw]

  Lists skipped records, failed cells and files and run outcomes recorded in
  the run journal (enabled with ` + config.EnvJournal + `).
`
}

func (c *failuresCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "limit", 50, "Maximum number of entries")
	f.BoolVar(&c.raw, "raw", false, "Print markdown without terminal rendering")
}

func (c *failuresCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, c.g)
	if err != nil {
		fail("%v", err)
		return subcommands.ExitUsageError
	}
	defer a.Close()

	if a.journal == nil {
		fail("run journal is disabled; set %s", config.EnvJournal)
		return subcommands.ExitUsageError
	}
	entries, err := a.journal.Recent(ctx, c.limit, 0)
	if err != nil {
		fail("read journal: %v", err)
		return subcommands.ExitFailure
	}
	a.printMarkdown(render.JournalMarkdown(entries), c.raw)
	return subcommands.ExitSuccess
}
