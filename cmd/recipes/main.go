package main

import (
	"github.com/joho/godotenv"

	"recipes/internal/cli"
)

func main() {
	// A missing .env is fine; RECIPES_ variables may come from the shell.
	_ = godotenv.Load()
	cli.Execute()
}
