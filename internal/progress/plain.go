package progress

import (
	"fmt"
	"io"
)

// Plain renders progress as log lines, for non-interactive runs where a
// live display would write control sequences into a pipe.
type Plain struct {
	out io.Writer
}

// NewPlain creates a line-oriented renderer writing to out.
func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) Start(overallTotal int) {
	fmt.Fprintf(p.out, "scanning %d ips\n", overallTotal)
}

func (p *Plain) BlockStarted(block string, total int) {
	fmt.Fprintf(p.out, "%s: %d ips\n", block, total)
}

func (p *Plain) BlockAdvanced(string, int, int) {}

func (p *Plain) BlockDone(block string) {
	fmt.Fprintf(p.out, "%s: done\n", block)
}

func (p *Plain) OverallAdvanced(scanned, total int) {
	if scanned == total {
		fmt.Fprintf(p.out, "scanned %d/%d ips\n", scanned, total)
	}
}

func (p *Plain) Report(line string) {
	fmt.Fprintln(p.out, line)
}

func (p *Plain) Stop() {}
