package main

import (
	"os"

	"tinydoc/internal/cli"
)

func main() {
	if err := cli.NewServeCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
