package main

import (
	"os"

	"github.com/wonny/temaweb/cmd/temaweb/commands"
)

// main is the entry point for the temaweb CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/temaweb [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
