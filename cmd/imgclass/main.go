package main

import (
	"os"

	"imgclass/internal/cli"
)

func main() { os.Exit(cli.Main()) }
