package main

import (
	"os"

	"github.com/snapcal/snapcal/cmd/snapcal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
