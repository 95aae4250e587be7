// Command spendlens-worker runs the sheets sync worker. It is the same
// binary as "spendlens worker", packaged separately for deployment.
package main

import (
	"fmt"
	"os"

	"spendlens/internal/cli"
)

func main() {
	root := cli.NewRootCmd()
	root.SetArgs(append([]string{"worker"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
