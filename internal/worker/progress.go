package worker

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Progress tracks tile generation and draws a single-line progress bar.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.Mutex
}

// NewProgress creates a tracker for total tiles drawing to output. A nil
// output only records counts.
func NewProgress(total int, output io.Writer) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    output,
	}
}

// Update records the pool's counters and redraws the bar.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed, p.total, p.failed = completed, total, failed
	if p.output != nil {
		fmt.Fprint(p.output, "\r"+p.lineLocked(time.Since(p.startTime))+"          ")
	}
}

// Callback returns a ProgressFunc suitable for use with Pool.Config.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Done redraws the bar one last time and ends the line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output != nil {
		fmt.Fprintln(p.output, "\r"+p.lineLocked(time.Since(p.startTime)))
	}
}

func (p *Progress) lineLocked(elapsed time.Duration) string {
	var fraction float64
	if p.total > 0 {
		fraction = float64(p.completed) / float64(p.total)
	}
	filled := int(fraction * barWidth)
	var b strings.Builder
	fmt.Fprintf(&b, "[%s%s] %d/%d tiles", strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), p.completed, p.total)
	if p.failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", p.failed)
	}

	rate := tileRate(p.completed, elapsed)
	fmt.Fprintf(&b, " - %.1f tiles/sec", rate)
	switch {
	case p.completed >= p.total:
		fmt.Fprintf(&b, " - Done in %s", formatDuration(elapsed))
	case rate > 0:
		eta := time.Duration(float64(p.total-p.completed) / rate * float64(time.Second))
		fmt.Fprintf(&b, " - ETA: %s", formatDuration(eta))
	}
	return b.String()
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.startTime)
	return fmt.Sprintf("Generated %d/%d tiles (%d failed) in %s (%.1f tiles/sec)",
		p.completed-p.failed, p.total, p.failed, formatDuration(elapsed), tileRate(p.completed, elapsed))
}

func tileRate(completed int, elapsed time.Duration) float64 {
	if completed == 0 || elapsed <= 0 {
		return 0
	}
	return float64(completed) / elapsed.Seconds()
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
