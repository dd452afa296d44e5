// Command connectlab is the command-line front end of the circuit editor.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/connectlab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
