package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Progress renders a single self-overwriting status line. A total of zero
// means the end is unknown and no bar is drawn.
type Progress struct {
	mu      sync.Mutex
	label   string
	total   int
	current int
	start   time.Time
	done    bool
}

// NewProgress creates a progress line
func NewProgress(label string, total int) *Progress {
	return &Progress{label: label, total: total, start: time.Now()}
}

// Bar draws current/total as a fixed-width bar
func Bar(current, total, width int) string {
	if total <= 0 || width <= 0 {
		return ""
	}
	if current > total {
		current = total
	}
	if current < 0 {
		current = 0
	}
	filled := current * width / total
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// Update sets the current count and redraws
func (p *Progress) Update(current int) {
	p.mu.Lock()
	p.current = current
	line := p.line()
	p.mu.Unlock()

	printf(false, "\r%s", line)
}

// Rate returns items per minute since the line was created
func (p *Progress) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate()
}

func (p *Progress) rate() float64 {
	elapsed := time.Since(p.start).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.current) / elapsed
}

func (p *Progress) line() string {
	var b strings.Builder
	b.WriteString(Green("[" + strings.ToUpper(p.label) + "]"))
	if p.total > 0 {
		fmt.Fprintf(&b, " [%s] %d/%d", Bar(p.current, p.total, barWidth), p.current, p.total)
	} else {
		fmt.Fprintf(&b, " %d", p.current)
	}
	fmt.Fprintf(&b, " %s", Dim(fmt.Sprintf("| %.1f/min", p.rate())))
	return b.String()
}

// Finish ends the line. Calling it more than once is a no-op.
func (p *Progress) Finish() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	touched := p.current > 0
	p.mu.Unlock()

	if touched {
		printf(false, "\n")
	}
}
