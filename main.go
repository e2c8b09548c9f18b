// The main package for the sourcescope executable.
package main

import (
	"github.com/JakeFAU/sourcescope/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
