// Command checkqueue is a demo harness for the check queue: it runs a
// scripted scenario against in-memory documents and can read back the
// audit trail the run produced.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/checkqueue/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
