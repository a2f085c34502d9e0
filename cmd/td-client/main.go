package main

import (
	"os"

	"tinydoc/internal/cli"
)

func main() {
	if err := cli.NewClientCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
