package main

import (
	"os"

	"synapse/cmd/synapse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
