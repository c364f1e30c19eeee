package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

const descLength = 24

// Progress is a terminal progress bar that can be advanced from several
// goroutines. When disabled or not attached to a terminal every method is a
// no-op.
type Progress struct {
	container *mpb.Progress
	bar       *mpb.Bar
	out       io.Writer

	mu   sync.Mutex
	desc string
}

// NewProgress creates a bar for total items on stderr.
func NewProgress(total int, enabled bool) *Progress {
	p := &Progress{out: os.Stderr}
	if !enabled || !isTerminal() {
		return p
	}

	fmt.Fprintln(p.out)
	p.container = mpb.New(
		mpb.WithOutput(p.out),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)
	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return p.description()
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name("  "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)
	return p
}

func (p *Progress) Enabled() bool {
	return p.bar != nil
}

func (p *Progress) description() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.desc) > descLength {
		return ".." + p.desc[len(p.desc)-descLength+2:]
	}
	return p.desc
}

// Increment advances the bar by one and shows description next to it.
func (p *Progress) Increment(description string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.desc = description
	p.mu.Unlock()
	p.bar.Increment()
}

// Finish waits for the bar to render its final state.
func (p *Progress) Finish() {
	if p.container == nil {
		return
	}
	if !p.bar.Completed() {
		p.bar.Abort(false)
	}
	p.container.Wait()
	fmt.Fprintln(p.out)
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
