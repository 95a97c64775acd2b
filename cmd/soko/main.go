package main

import (
	"os"

	"github.com/sokohub/soko/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
