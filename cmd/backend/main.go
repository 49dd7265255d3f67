package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCommand = &cobra.Command{
	Use:           "backend",
	Short:         "threaded comments service",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	err := rootCommand.Execute()
	if err != nil {
		os.Exit(1)
	}
}
