// Package progress reports the advance of long-running operations as
// integer percentages.
package progress

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Sink receives progress increments. The increments of one operation add up
// to at most 100. Update is called from the worker goroutine and must not
// block.
type Sink interface {
	Update(delta int)
}

// Func adapts a function to the Sink interface
type Func func(delta int)

// Update implements Sink
func (f Func) Update(delta int) { f(delta) }

// Logger is a Sink that writes the running percentage to the standard logger
type Logger struct {
	total int
}

// Update implements Sink
func (l *Logger) Update(delta int) {
	l.total += delta
	log.Printf("Progress: %d%%", l.total)
}

// Bar draws a console progress bar with elapsed and remaining time
type Bar struct {
	out       io.Writer
	width     int
	total     int
	label     string
	startTime time.Time
}

// NewBar creates a progress bar writing to stdout
func NewBar(label string) *Bar {
	return &Bar{
		out:       os.Stdout,
		width:     40,
		label:     label,
		startTime: time.Now(),
	}
}

// ResetTimer restarts the clock used for the time estimates
func (b *Bar) ResetTimer() {
	b.startTime = time.Now()
}

// Percent returns the accumulated percentage
func (b *Bar) Percent() int {
	return b.total
}

// Update implements Sink
func (b *Bar) Update(delta int) {
	b.total = min(100, b.total+delta)
	fmt.Fprint(b.out, "\r"+b.render(time.Now()))
	if b.total >= 100 {
		fmt.Fprintln(b.out)
	}
}

func (b *Bar) render(now time.Time) string {
	numBars := b.total * b.width / 100

	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < b.width; i++ {
		switch {
		case i < numBars:
			sb.WriteString("█")
		case i == numBars:
			sb.WriteString("▓")
		default:
			sb.WriteString("░")
		}
	}
	sb.WriteString("]")

	status := fmt.Sprintf("%s %3d%%", sb.String(), b.total)
	if b.label != "" {
		status = b.label + " " + status
	}

	if b.total > 0 && !b.startTime.IsZero() {
		elapsed := now.Sub(b.startTime)
		remaining := 0.0
		if b.total < 100 {
			remaining = elapsed.Seconds() / float64(b.total) * float64(100-b.total)
		}
		status += fmt.Sprintf(" [%.1fs elapsed | %s remaining]", elapsed.Seconds(), formatDuration(remaining))
	}
	return status
}

// formatDuration prints seconds, minutes or hours depending on magnitude
func formatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
}
