package main

import (
	"os"

	"github.com/calendrier-dev/calendrier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
