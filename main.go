// The main package for the serp-harvester executable.
package main

import (
	"github.com/searchops/serp-harvester/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
