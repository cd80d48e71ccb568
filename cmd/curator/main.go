package main

import (
	"os"

	"github.com/streakhq/curator/cmd/curator/commands"
)

// main is the entry point for the curator CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/curator [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
