package main

import (
	"os"

	"github.com/nilemart/backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
