package main

import (
	"fmt"
	"os"

	"homesplit/internal/cli"
)

func main() {
	if err := cli.NewSettleCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
