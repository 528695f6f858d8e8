package main

import (
	"os"

	"github.com/reasoned-dev/reasoned/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
