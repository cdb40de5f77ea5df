package main

import (
	"os"

	"github.com/localmedia/player/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
