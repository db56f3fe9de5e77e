package progress

import (
	"os"

	"github.com/mattn/go-isatty"
)

// NewDefaultReporter returns a text Reporter writing to f if f is an
// interactive terminal, and a no-op Reporter otherwise (redirected to a
// file, piped, or running under CI), matching the interactive/non-interactive
// split every CLI in the pack makes for progress output.
func NewDefaultReporter(f *os.File) Reporter {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewTextReporter(f)
	}
	return NewNopReporter()
}
