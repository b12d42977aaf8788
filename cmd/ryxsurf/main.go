package main

import (
	"os"

	"github.com/Tobito320/ryxsurf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
