package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// ProgressBar renders download/rehydration progress. On a TTY it redraws
// in place; otherwise it prints at 10% steps so logs stay readable.
type ProgressBar struct {
	out        io.Writer
	verb       string
	total      int64
	current    int64
	startTime  time.Time
	lastUpdate time.Time
	isTTY      bool
	lastPct    float64
	colors     *ColorConfig
}

// NewProgressBar creates a progress bar. verb names the activity
// ("Downloading", "Rehydrating"). A total <= 0 shows plain byte counts.
func NewProgressBar(out io.Writer, verb string, total int64) *ProgressBar {
	if out == nil {
		out = os.Stdout
	}
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &ProgressBar{
		out:       out,
		verb:      verb,
		total:     total,
		startTime: time.Now(),
		isTTY:     isTTY,
		lastPct:   -1,
		colors:    NewColorConfigFromGlobal(),
	}
}

// Update advances the bar to the given byte count.
func (p *ProgressBar) Update(current int64) {
	p.current = current

	// Rate limit TTY redraws to avoid flicker.
	now := time.Now()
	if p.isTTY && now.Sub(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = now

	if p.total <= 0 {
		fmt.Fprintf(p.out, "\r  %s... %s", p.verb, FormatBytes(current))
		return
	}

	pct := float64(current) / float64(p.total) * 100
	if p.isTTY {
		p.renderTTY(pct)
		return
	}
	threshold := float64(int(pct/10) * 10)
	if threshold > p.lastPct {
		p.lastPct = threshold
		fmt.Fprintf(p.out, "  %s... %.0f%%\n", p.verb, threshold)
	}
}

func (p *ProgressBar) renderTTY(pct float64) {
	elapsed := time.Since(p.startTime).Seconds()
	var speed float64
	if elapsed > 0 {
		speed = float64(p.current) / elapsed
	}

	eta := "0s"
	if speed > 0 && p.current < p.total {
		eta = FormatDuration(float64(p.total-p.current) / speed)
	}

	width := 80
	if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	barWidth := width - 56
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}

	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := ""
	for i := 0; i < barWidth; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}

	// \033[K clears to end of line so shrinking stats never leave residue.
	fmt.Fprintf(p.out, "\r  [%s] %5.1f%%   %s/%s   %s   ETA %s\033[K",
		bar, pct, FormatBytes(p.current), FormatBytes(p.total), FormatSpeed(speed), eta)
}

// Finish completes the bar and moves to the next line.
func (p *ProgressBar) Finish() {
	if p.isTTY {
		if p.total > 0 {
			p.current = p.total
			p.renderTTY(100)
		}
		fmt.Fprintln(p.out)
		return
	}
	if p.total > 0 && p.lastPct < 100 {
		fmt.Fprintf(p.out, "  %s... 100%%\n", p.verb)
	}
}

// UnitProgress renders coarse unit-based progress (n of m files) for
// rehydration, where byte totals are not known up front.
type UnitProgress struct {
	out   io.Writer
	verb  string
	isTTY bool
}

// NewUnitProgress creates a unit progress reporter.
func NewUnitProgress(out io.Writer, verb string) *UnitProgress {
	if out == nil {
		out = os.Stdout
	}
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	return &UnitProgress{out: out, verb: verb, isTTY: isTTY}
}

// Update reports done of total units.
func (u *UnitProgress) Update(done, total int) {
	if u.isTTY {
		fmt.Fprintf(u.out, "\r  %s... %d/%d\033[K", u.verb, done, total)
		if done >= total {
			fmt.Fprintln(u.out)
		}
		return
	}
	fmt.Fprintf(u.out, "  %s... %d/%d\n", u.verb, done, total)
}
