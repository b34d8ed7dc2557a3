// Command ossuary scores the governance risk of open-source packages
// (spec §6). See cmd/ossuary/cmd for the subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/ossuary/ossuary/cmd/ossuary/cmd"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(ossuaryerrors.ExitCode(err))
}
