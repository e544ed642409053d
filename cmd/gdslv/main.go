// Command gdslv verifies GDSL instruction streams and diffs/patches
// GPU resource images at page granularity.
package main

import (
	"fmt"
	"os"

	"github.com/streamsafe/gdsl/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
