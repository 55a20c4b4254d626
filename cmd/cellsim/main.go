// Command cellsim runs particle reaction-diffusion models.
package main

import (
	"os"

	"github.com/roach88/cellsim/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	os.Exit(cli.GetExitCode(err))
}
