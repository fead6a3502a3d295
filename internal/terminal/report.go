package terminal

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/zoobzio/capitan"

	"github.com/zoobzio/polish"
)

// Row is one attempt as reported to the user.
type Row struct {
	Attempt  int
	Endpoint string
	Mode     string
	Outcome  string // "ok" or the error kind
	Status   int
	Duration time.Duration
}

// Recorder collects attempt rows from hook events.
type Recorder struct {
	mu       sync.Mutex
	rows     []Row
	expected int // attempt count reported by the submit event, -1 until seen
	changed  chan struct{}
	stops    []func()
}

// NewRecorder starts listening for attempt and submit events.
func NewRecorder() *Recorder {
	r := &Recorder{expected: -1, changed: make(chan struct{}, 1)}
	for _, sig := range []capitan.Signal{polish.AttemptCompleted, polish.AttemptFailed} {
		l := capitan.Hook(sig, r.onAttempt)
		r.stops = append(r.stops, func() { l.Close() })
	}
	for _, sig := range []capitan.Signal{polish.SubmitCompleted, polish.SubmitFailed} {
		l := capitan.Hook(sig, r.onSubmit)
		r.stops = append(r.stops, func() { l.Close() })
	}
	return r
}

func (r *Recorder) onAttempt(_ context.Context, e *capitan.Event) {
	row := Row{Outcome: "ok"}
	row.Attempt, _ = polish.AttemptKey.From(e)
	row.Endpoint, _ = polish.EndpointKey.From(e)
	row.Mode, _ = polish.ModeKey.From(e)
	if kind, ok := polish.ErrorKindKey.From(e); ok {
		row.Outcome = kind
	}
	row.Status, _ = polish.HTTPStatusCodeKey.From(e)
	if ms, ok := polish.DurationMsKey.From(e); ok {
		row.Duration = time.Duration(ms) * time.Millisecond
	}

	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()
	r.notify()
}

func (r *Recorder) onSubmit(_ context.Context, e *capitan.Event) {
	n, ok := polish.AttemptKey.From(e)
	if !ok {
		return
	}
	r.mu.Lock()
	r.expected = n
	r.mu.Unlock()
	r.notify()
}

func (r *Recorder) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Rows waits until every attempt of the finished submission has been recorded,
// or until timeout, and returns the rows ordered by attempt.
func (r *Recorder) Rows(timeout time.Duration) []Row {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		r.mu.Lock()
		done := r.expected >= 0 && len(r.rows) >= r.expected
		r.mu.Unlock()
		if done {
			break
		}
		select {
		case <-r.changed:
		case <-deadline.C:
			return r.snapshot()
		}
	}
	return r.snapshot()
}

func (r *Recorder) snapshot() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := append([]Row(nil), r.rows...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Attempt < rows[j].Attempt })
	return rows
}

// Close stops listening.
func (r *Recorder) Close() {
	for _, stop := range r.stops {
		stop()
	}
}

// Report renders rows as a table.
func Report(w io.Writer, rows []Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Endpoint", "Mode", "Outcome", "Status", "Duration"})
	table.SetAutoFormatHeaders(false)
	for _, row := range rows {
		status := "-"
		if row.Status > 0 {
			status = strconv.Itoa(row.Status)
		}
		table.Append([]string{
			strconv.Itoa(row.Attempt),
			row.Endpoint,
			row.Mode,
			row.Outcome,
			status,
			row.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}
