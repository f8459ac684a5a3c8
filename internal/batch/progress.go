package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// Progress receives run progress. Calls arrive from a single goroutine.
type Progress interface {
	// OnStart is called once with the number of cells to process.
	OnStart(total int)
	// OnProgress is called after each cell finishes.
	OnProgress(done, total int)
	// OnComplete is called when the run ends.
	OnComplete()
	// OnError is called when a cell fails.
	OnError(cell int, err error)
}

// Progress reporter names accepted by NewProgress.
const (
	ProgressNone    = "none"
	ProgressConsole = "console"
	ProgressLog     = "log"
)

// NewProgress builds the named reporter. Unknown names are an error.
func NewProgress(kind string, w io.Writer, logger *slog.Logger) (Progress, error) {
	switch strings.ToLower(kind) {
	case "", ProgressNone:
		return NoOpProgress{}, nil
	case ProgressConsole:
		return NewConsoleProgress(w, "Cells: "), nil
	case ProgressLog:
		return NewLogProgress(logger, slog.LevelInfo), nil
	default:
		return nil, fmt.Errorf("unknown progress reporter %q (use none, console or log)", kind)
	}
}

// NoOpProgress discards every update.
type NoOpProgress struct{}

func (NoOpProgress) OnStart(int)         {}
func (NoOpProgress) OnProgress(int, int) {}
func (NoOpProgress) OnComplete()         {}
func (NoOpProgress) OnError(int, error)  {}

// ConsoleProgress draws a progress bar.
type ConsoleProgress struct {
	writer         io.Writer
	prefix         string
	width          int
	updateInterval time.Duration

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
}

// NewConsoleProgress writes to w (stderr when nil).
func NewConsoleProgress(w io.Writer, prefix string) *ConsoleProgress {
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleProgress{writer: w, prefix: prefix, width: 40, updateInterval: 100 * time.Millisecond}
}

// WithUpdateInterval sets how frequently the bar is redrawn.
func (c *ConsoleProgress) WithUpdateInterval(d time.Duration) *ConsoleProgress {
	c.updateInterval = d
	return c
}

func (c *ConsoleProgress) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.lastUpdate = time.Time{}
	_, _ = fmt.Fprintf(c.writer, "%s0/%d (0.0%%)\n", c.prefix, total)
}

func (c *ConsoleProgress) OnProgress(done, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastUpdate) < c.updateInterval && done < total {
		return
	}
	c.lastUpdate = now
	if total == 0 {
		return
	}
	filled := c.width * done / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", c.width-filled)
	status := fmt.Sprintf("\r%s[%s] %d/%d (%.1f%%)", c.prefix, bar, done, total, 100*float64(done)/float64(total))
	if elapsed := now.Sub(c.startTime); elapsed > 0 && done > 0 {
		status += fmt.Sprintf(" %.1f/s", float64(done)/elapsed.Seconds())
	}
	_, _ = fmt.Fprint(c.writer, status)
}

func (c *ConsoleProgress) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sCompleted in %v\n", c.prefix, time.Since(c.startTime).Round(time.Millisecond))
}

func (c *ConsoleProgress) OnError(cell int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.writer, "\n%sCell %d failed: %v\n", c.prefix, cell, err)
}

// LogProgress logs updates through slog every Interval cells.
type LogProgress struct {
	logger    *slog.Logger
	level     slog.Level
	interval  int
	lastLog   int
	startTime time.Time
}

// NewLogProgress logs at level (slog.Default when logger is nil).
func NewLogProgress(logger *slog.Logger, level slog.Level) *LogProgress {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgress{logger: logger, level: level, interval: 10}
}

// WithInterval sets how many cells pass between log lines.
func (l *LogProgress) WithInterval(n int) *LogProgress {
	l.interval = n
	return l
}

func (l *LogProgress) OnStart(total int) {
	l.startTime = time.Now()
	l.lastLog = 0
	l.logger.Log(context.Background(), l.level, "batch started", "total", total)
}

func (l *LogProgress) OnProgress(done, total int) {
	if done-l.lastLog < l.interval && done != total {
		return
	}
	l.lastLog = done
	l.logger.Log(context.Background(), l.level, "batch progress",
		"done", done,
		"total", total,
		"elapsed", time.Since(l.startTime).Round(time.Millisecond),
	)
}

func (l *LogProgress) OnComplete() {
	l.logger.Log(context.Background(), l.level, "batch completed", "elapsed", time.Since(l.startTime).Round(time.Millisecond))
}

func (l *LogProgress) OnError(cell int, err error) {
	l.logger.Log(context.Background(), slog.LevelError, "cell failed", "cell", cell, "error", err)
}

// MultiProgress fans updates out to several reporters.
type MultiProgress []Progress

func (m MultiProgress) OnStart(total int) {
	for _, p := range m {
		p.OnStart(total)
	}
}

func (m MultiProgress) OnProgress(done, total int) {
	for _, p := range m {
		p.OnProgress(done, total)
	}
}

func (m MultiProgress) OnComplete() {
	for _, p := range m {
		p.OnComplete()
	}
}

func (m MultiProgress) OnError(cell int, err error) {
	for _, p := range m {
		p.OnError(cell, err)
	}
}
