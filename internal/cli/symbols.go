package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

type symbolsCmd struct {
	app *App
}

func (*symbolsCmd) Name() string     { return "symbols" }
func (*symbolsCmd) Synopsis() string { return "list the registry symbols in sheet order" }
func (*symbolsCmd) Usage() string {
	return `stocktracker symbols
`
}

func (*symbolsCmd) SetFlags(*flag.FlagSet) {}

func (c *symbolsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	reg, err := c.app.registry()
	if err != nil {
		fmt.Fprintln(c.app.Stderr, err)
		return subcommands.ExitFailure
	}
	for i, e := range reg.Entries() {
		fmt.Fprintf(c.app.Stdout, "%3d  %-16s %s\n", i+1, e.Symbol, e.Sector)
	}
	fmt.Fprintf(c.app.Stdout, "%d symbols\n", reg.Len())
	return subcommands.ExitSuccess
}
