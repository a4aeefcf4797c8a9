package main

import (
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tallyctl/internal/command"
)

func main() {
	_ = godotenv.Load()

	command.Execute()
}
