// ./main.go
package main

import (
	"github.com/chatdrop/chatdrop/cmd"
)

// main is the entry point for the chatdrop bridge.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
