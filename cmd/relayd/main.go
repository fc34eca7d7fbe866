package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Getenv, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "relayd:", err)
		os.Exit(1)
	}
}
