package main

import (
	"os"

	"github.com/bimmerbailey/logsplit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
