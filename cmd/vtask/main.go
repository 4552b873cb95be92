package main

import (
	"os"

	"vtask/cmd/vtask/cmd"
)

var version = "dev"

func main() {
	cmd.Version = version
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
