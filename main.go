package main

import (
	"os"

	"github.com/Sukarth/wastewater-optimization/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
