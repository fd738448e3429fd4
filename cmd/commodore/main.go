package main

import (
	"errors"
	"os"

	"github.com/projectsyn/commodore-go/cmd/commodore/cmd"
	"github.com/projectsyn/commodore-go/pkg/cerrors"
)

func main() {
	os.Exit(exitCode(cmd.Execute()))
}

// exitCode maps an error returned by the command tree to the process exit
// codes spec.md §6 names: 0 success, 1 fatal error, 2 misuse, 127 missing
// external tool. Errors from the Commodore error taxonomy (pkg/cerrors)
// carry their own classification; anything else reaching main (a Cobra
// argument-parsing failure, a bad flag combination caught before a
// Coordinator ever runs) is, by construction, a usage error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *cerrors.Error
	if errors.As(err, &ce) {
		return cerrors.ExitCode(err)
	}
	var missing *cerrors.ToolMissingError
	if errors.As(err, &missing) {
		return 127
	}
	return 2
}
