package main

import (
	"os"

	"finsheet/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
