package main

import (
	"os"

	"github.com/abhisek/rounds/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
