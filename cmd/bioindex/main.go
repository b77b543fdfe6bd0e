package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/bioindex/internal/adapters/driving/cli"
)

func main() {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
