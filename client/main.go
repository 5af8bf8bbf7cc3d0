package main

import (
	"os"

	"github.com/netbirdio/minion-installer/client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
