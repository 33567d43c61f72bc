package main

import (
	"os"

	"github.com/agentdeck/agentdeck/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
