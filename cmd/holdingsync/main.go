// Command holdingsync rebuilds a spreadsheet holdings table from brokerage CSV
// exports and maintains the reporting sheets around it.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	os.Exit(int(run(context.Background(), flag.CommandLine, os.Args[1:])))
}

// run parses global flags from args and executes the selected command.
func run(ctx context.Context, fs *flag.FlagSet, args []string) subcommands.ExitStatus {
	commander := subcommands.NewCommander(fs, path.Base(os.Args[0]))
	commander.Output = stdout
	commander.Error = stderr
	g := registerGlobals(fs)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&refreshCmd{g: g}, "holdings")
	commander.Register(&formulasCmd{g: g}, "holdings")
	commander.Register(&inspectCmd{g: g}, "holdings")
	commander.Register(&reportCmd{g: g}, "reports")
	commander.Register(&failuresCmd{g: g}, "reports")
	commander.Register(&configCmd{g: g}, "settings")

	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	return commander.Execute(ctx)
}
