package main

import (
	"os"

	"github.com/ragstage/ragstage/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
