package main

import (
	"os"

	"github.com/Makepad-fr/pantry/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
