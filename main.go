// The main package for the sekolah crawler executable.
package main

import (
	"github.com/benangmerah/sekolah/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
