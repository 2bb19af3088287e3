package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/nchapman/kokoro-fetch/internal/download"
	"github.com/nchapman/kokoro-fetch/internal/logs"
	"github.com/schollz/progressbar/v3"
)

// FormatBytes renders a byte count with binary units ("1.5 MiB").
func FormatBytes(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ProgressBar draws a byte-count bar for one file, labelled like the file's
// manifest entry.
type ProgressBar struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w}
}

// Start draws an empty bar. A total of 0 means the size is unknown and a
// spinner is shown instead.
func (p *ProgressBar) Start(label string, total int64) {
	if total <= 0 {
		total = -1
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.w)
		}),
	)
}

func (p *ProgressBar) Update(current int64) {
	if p.bar != nil {
		p.bar.Set64(current)
	}
}

func (p *ProgressBar) Finish(label string) {
	if p.bar != nil {
		p.bar.Finish()
	}
}

// Stop leaves the bar where it is, for a download that failed.
func (p *ProgressBar) Stop() {
	if p.bar != nil {
		p.bar.Exit()
		fmt.Fprintln(p.w)
	}
}

// LogProgress reports downloads as log lines. Used when several files
// download at once or output is not a terminal, where bars would interleave.
type LogProgress struct {
	mu      sync.Mutex
	label   string
	total   int64
	current int64
	started time.Time
}

func NewLogProgress() *LogProgress {
	return &LogProgress{}
}

func (p *LogProgress) Start(label string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label, p.total, p.started = label, total, time.Now()
	if total > 0 {
		logs.Info("downloading", "file", label, "size", FormatBytes(total))
	} else {
		logs.Info("downloading", "file", label)
	}
}

func (p *LogProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
}

func (p *LogProgress) Finish(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	logs.Info("downloaded", "file", label, "size", FormatBytes(p.current),
		"elapsed", time.Since(p.started).Round(time.Millisecond))
}

func (p *LogProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	logs.Warn("download stopped", "file", p.label, "received", FormatBytes(p.current))
}

// NewProgressFactory picks how fetches report progress: bars on w when it is
// an interactive terminal and downloads run one at a time, log lines
// otherwise.
func NewProgressFactory(w *os.File, concurrency int) download.ProgressFactory {
	if concurrency == 1 && IsTerminal(w) {
		return func() download.ProgressDisplay { return NewProgressBar(w) }
	}
	return func() download.ProgressDisplay { return NewLogProgress() }
}
