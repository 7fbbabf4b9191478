package main

import (
	"context"
	"fmt"
	"os"

	"playgate/cmd/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "playgate:", err)
		os.Exit(1)
	}
}
