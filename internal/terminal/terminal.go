// Package terminal renders polishing progress on a terminal and reports the
// attempts a submission made.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	loading lipgloss.Style
	partial lipgloss.Style
	err     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		loading: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7c8aa5")).
			Italic(true),
		partial: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c3e88d")),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff5370")).
			Bold(true),
	}
}

// Terminal is a polish.Sink and polish.Trigger. Progress and errors go to the
// status writer; only the final text is written to out, by Print.
type Terminal struct {
	out    io.Writer
	status io.Writer
	styles styles

	mu      sync.Mutex
	shown   string // partial text already written to status
	enabled bool
}

// New returns a Terminal writing results to out and progress to status.
func New(out, status io.Writer) *Terminal {
	return &Terminal{
		out:     out,
		status:  status,
		styles:  defaultStyles(),
		enabled: true,
	}
}

// ShowLoading writes message on its own status line.
func (t *Terminal) ShowLoading(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endPartial()
	fmt.Fprintln(t.status, t.styles.loading.Render(message))
}

// ShowResult writes the part of text not yet shown. Text that does not extend
// what is on screen starts a new line.
func (t *Terminal) ShowResult(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case strings.HasPrefix(t.shown, text):
		// Trimmed final text; nothing new.
		return
	case strings.HasPrefix(text, t.shown):
		fmt.Fprint(t.status, t.styles.partial.Render(text[len(t.shown):]))
	default:
		t.endPartial()
		fmt.Fprint(t.status, t.styles.partial.Render(text))
	}
	t.shown = text
}

// ShowError writes message on its own status line.
func (t *Terminal) ShowError(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endPartial()
	fmt.Fprintln(t.status, t.styles.err.Render(message))
}

// SetEnabled records whether a new submission may start.
func (t *Terminal) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// Enabled reports the last SetEnabled value.
func (t *Terminal) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Print closes any partial status line and writes text to out.
func (t *Terminal) Print(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endPartial()
	fmt.Fprintln(t.out, text)
}

func (t *Terminal) endPartial() {
	if t.shown != "" {
		fmt.Fprintln(t.status)
		t.shown = ""
	}
}
