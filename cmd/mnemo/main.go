package main

import (
	"os"

	"github.com/mnemograph/mnemo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
