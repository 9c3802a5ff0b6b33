package main

import (
	"os"

	"github.com/gorecord/gorecord/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
