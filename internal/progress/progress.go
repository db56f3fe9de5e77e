// Package progress reports incremental byte counts for long-running
// transfers (publish uploads, pull downloads) without coupling the
// transfer code to a particular display.
package progress

import (
	"fmt"
	"io"
	"sync"
)

// Progress receives incremental updates for a single named operation.
type Progress interface {
	// Inc reports that amount additional bytes (or units) were processed.
	Inc(amount int)
	// Tick reports one step of indeterminate-size progress (e.g. one file
	// of a multi-file transfer with no byte total known up front).
	Tick()
	// Done marks the operation complete.
	Done()
}

// Reporter creates a Progress for a named operation. max is the total
// size if known, or 0 if indeterminate.
type Reporter interface {
	New(name string, max int) Progress
}

// nopProgress discards every update.
type nopProgress struct{}

func (nopProgress) Inc(int) {}
func (nopProgress) Tick()   {}
func (nopProgress) Done()   {}

// nopReporter creates only nopProgress values.
type nopReporter struct{}

// NewNopReporter returns a Reporter that discards all progress, for batch
// or non-interactive use.
func NewNopReporter() Reporter { return nopReporter{} }

func (nopReporter) New(string, int) Progress { return nopProgress{} }

// textReporter writes a line per Done() to w; it does not attempt
// in-place terminal redraws, so it is safe to use against a plain file or
// pipe as well as a terminal.
type textReporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewTextReporter returns a Reporter that writes one summary line to w
// when each operation finishes.
func NewTextReporter(w io.Writer) Reporter {
	return &textReporter{w: w}
}

func (r *textReporter) New(name string, max int) Progress {
	return &textProgress{reporter: r, name: name, max: max}
}

type textProgress struct {
	reporter *textReporter
	name     string
	max      int
	done     int
}

func (p *textProgress) Inc(amount int) { p.done += amount }
func (p *textProgress) Tick()          { p.done++ }

func (p *textProgress) Done() {
	p.reporter.mu.Lock()
	defer p.reporter.mu.Unlock()
	if p.max > 0 {
		fmt.Fprintf(p.reporter.w, "%s: %d/%d\n", p.name, p.done, p.max)
	} else {
		fmt.Fprintf(p.reporter.w, "%s: %d\n", p.name, p.done)
	}
}

// ReaderAdapter wraps an io.Reader, reporting every successful Read to a
// Progress as it streams through.
type ReaderAdapter struct {
	r io.Reader
	p Progress
}

// NewReaderAdapter returns a reader that forwards every byte read from r
// to p.Inc before returning it to the caller.
func NewReaderAdapter(r io.Reader, p Progress) *ReaderAdapter {
	return &ReaderAdapter{r: r, p: p}
}

func (a *ReaderAdapter) Read(buf []byte) (int, error) {
	n, err := a.r.Read(buf)
	if n > 0 {
		a.p.Inc(n)
	}
	return n, err
}
