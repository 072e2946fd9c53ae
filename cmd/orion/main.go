package main

import (
	"os"

	"github.com/wonny/orion/cmd/orion/commands"
)

// main is the entry point for the Orion CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/orion [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
