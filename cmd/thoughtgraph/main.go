package main

import (
	"context"
	"os"

	"thoughtgraph/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
