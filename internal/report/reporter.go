// Package report defines how a conversion run tells the outside world what it
// is doing, and ships the reporters the CLI and the dev server use.
package report

import "sync"

// Level ranks an event for reporters that filter output
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	default:
		return "info"
	}
}

// Event is one step of a conversion run
type Event struct {
	Phase   string
	Message string
	Level   Level
	Context map[string]any
}

// Reporter receives progress events and errors from a conversion run.
// Implementations must be safe for concurrent use: per-file steps are reported
// from worker goroutines.
type Reporter interface {
	Step(Event)
	Error(phase string, err error)
	// HasError reports whether any error was received; the pipeline checks it
	// after the parse and rewrite phases.
	HasError() bool
}

// ErrorFlag tracks the fatal-error signal for reporters that embed it
type ErrorFlag struct {
	mu    sync.RWMutex
	count int
}

// Mark records one error
func (f *ErrorFlag) Mark() {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}

func (f *ErrorFlag) HasError() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count > 0
}

// ErrorCount returns how many errors were recorded
func (f *ErrorFlag) ErrorCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// Null discards events. HasError stays false even after Error is called.
type Null struct{}

func (Null) Step(Event)          {}
func (Null) Error(string, error) {}
func (Null) HasError() bool      { return false }

// Multi fans events out to several reporters
type Multi []Reporter

// NewMulti drops nil reporters
func NewMulti(reporters ...Reporter) Multi {
	var m Multi
	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}
	return m
}

func (m Multi) Step(e Event) {
	for _, r := range m {
		r.Step(e)
	}
}

func (m Multi) Error(phase string, err error) {
	for _, r := range m {
		r.Error(phase, err)
	}
}

// HasError is true when any reporter has seen an error
func (m Multi) HasError() bool {
	for _, r := range m {
		if r.HasError() {
			return true
		}
	}
	return false
}

// Recorder keeps every event and error in memory, mostly for tests and the
// dev server's build log
type Recorder struct {
	ErrorFlag
	mu     sync.Mutex
	events []Event
	errors []error
}

func (r *Recorder) Step(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Error(phase string, err error) {
	r.mu.Lock()
	r.errors = append(r.errors, err)
	r.mu.Unlock()
	r.Mark()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Errors returns a copy of the recorded errors
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errors))
	copy(out, r.errors)
	return out
}

// EventsFor filters recorded events by phase
func (r *Recorder) EventsFor(phase string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}
