package main

import (
	"github.com/joho/godotenv"

	"github.com/truenumber/truenumber-cli/internal/cli"
)

func main() {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cli.Execute()
}
