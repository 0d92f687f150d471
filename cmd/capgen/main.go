package main

import (
	"os"

	"github.com/teranos/capgen/cmd/capgen/commands"
)

func main() {
	os.Exit(commands.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
