// The main package for the forager executable.
package main

import (
	"github.com/openclaw/forager/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
