package util

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Printer serializes console output of the CLI. Writes from concurrent
// goroutines never interleave within one call.
type Printer struct {
	mu        sync.Mutex
	out       io.Writer
	suspended bool
}

// Default writes to stdout.
var Default = NewPrinter(os.Stdout)

func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w}
}

func (p *Printer) Printf(format string, a ...interface{}) {
	p.write(fmt.Sprintf(format, a...))
}

func (p *Printer) Println(a ...interface{}) {
	p.write(fmt.Sprintln(a...))
}

// Write makes the printer usable as an io.Writer for raw tool output.
func (p *Printer) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suspended {
		return len(b), nil
	}
	return p.out.Write(b)
}

func (p *Printer) write(s string) {
	_, _ = p.Write([]byte(s))
}

func (p *Printer) Suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
}
