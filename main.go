package main

import (
	"fmt"
	"os"

	"dnamatcher/logging"
)

func main() {
	defer logging.Close()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
