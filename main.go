package main

import (
	"os"

	"eeapi/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
