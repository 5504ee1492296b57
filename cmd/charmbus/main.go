package main

import (
	"github.com/charmbus/charmbus/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
