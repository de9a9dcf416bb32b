package main

import (
	"os"

	"github.com/splitsignal/splitsignal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
