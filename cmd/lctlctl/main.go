package main

import (
	"os"

	"github.com/lustrefs/manager/cmd/lctlctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
