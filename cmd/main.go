package main

import (
	"os"

	"github.com/Refugee-Solidarity-Network/orientATIon/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
