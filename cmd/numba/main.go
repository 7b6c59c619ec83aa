package main

import (
	"os"

	"github.com/magnusohlin/numba/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
