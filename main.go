package main

import (
	"embed"
	"os"

	"neuralflow/cmd"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	if err := cmd.Execute(assets); err != nil {
		os.Exit(1)
	}
}
