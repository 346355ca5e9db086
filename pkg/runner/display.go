package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// pipedThrottle limits how often the position line is repeated when stdout
// is not a terminal
const pipedThrottle = time.Second

// Display owns stdout for the run. Reports and status lines are written
// through it so they never tear the progress bar's redraw.
type Display struct {
	mu          sync.Mutex
	out         io.Writer
	bar         *progressbar.ProgressBar
	interactive bool
}

// NewDisplay creates a display for a file of total data rows, already
// positioned at initial. On a terminal the bar is redrawn in place; otherwise
// the position is printed as its own line at most once per pipedThrottle.
func NewDisplay(out io.Writer, total, initial int) *Display {
	d := &Display{out: out, interactive: isTerminal(out)}

	barOut, throttle := out, 100*time.Millisecond
	if !d.interactive {
		barOut, throttle = &lineWriter{out: out}, pipedThrottle
	}

	d.bar = progressbar.NewOptions64(int64(total),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetDescription("validating"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionThrottle(throttle),
		progressbar.OptionSetPredictTime(true),
	)
	_ = d.bar.Set(initial)
	return d
}

// Interactive reports whether the bar is redrawn in place
func (d *Display) Interactive() bool {
	return d.interactive
}

// Add advances the progress bar by n rows
func (d *Display) Add(n int) {
	if n == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.bar.Add(n)
}

// WriteReport prints a failure report above the progress bar
func (d *Display) WriteReport(text string) {
	d.Println(text)
}

// Println clears the bar, prints line and redraws the bar below it
func (d *Display) Println(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.interactive {
		_ = d.bar.Clear()
	}
	fmt.Fprintln(d.out, line)
	if d.interactive {
		_ = d.bar.RenderBlank()
	}
}

// Finish completes the bar and moves past it
func (d *Display) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.bar.Finish()
	if d.interactive {
		fmt.Fprintln(d.out)
	}
}

// Abandon leaves the bar where it stopped
func (d *Display) Abandon() {
	d.mu.Lock()
	defer d.mu.Unlock()
	_ = d.bar.Exit()
	if d.interactive {
		_ = d.bar.Clear()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// lineWriter turns the bar's carriage-return redraws into whole lines and
// drops the blank writes used to erase it
type lineWriter struct {
	out io.Writer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, segment := range strings.Split(string(p), "\r") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if _, err := fmt.Fprintln(w.out, segment); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
