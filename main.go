package main

import (
	"fmt"
	"os"

	"github.com/fakedis/fakedis/servercli"
)

func main() {
	if err := servercli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
