package util

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal checks if the given file descriptor is a terminal
func IsTerminal(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// StdoutIsTerminal reports whether stdout is attached to a terminal.
// Used to decide whether progress bars are worth drawing.
func StdoutIsTerminal() bool {
	return IsTerminal(os.Stdout.Fd())
}
