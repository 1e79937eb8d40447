package main

import (
	"os"

	"github.com/statlake/harvester/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
