package main

import (
	"os"

	"github.com/selfeval/selfeval/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
