package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"github.com/mealsub/mealsub-cli/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
