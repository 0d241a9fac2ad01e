package main

import (
	"os"

	"github.com/rcliao/memory-storage/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
