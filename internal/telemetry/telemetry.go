package telemetry

import (
	"sync"
	"time"
)

// Level controls how an event is rendered by log-backed emitters.
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
	LevelWarn
)

// Event names shared by the pipeline stages.
const (
	EventPlannerUsage    = "planner.usage"
	EventPlannerFallback = "planner.fallback"
	EventSerpRequest     = "serp.request"
	EventSerpRaw         = "serp.raw"
	EventSerpHTTPError   = "serp.http_error"
	EventSerpDisabled    = "serp.disabled"
	EventPageFetched     = "page.fetched"
	EventGateFallback    = "gate.fallback"
	EventPipelineState   = "pipeline.state"
	EventPipelineDone    = "pipeline.done"
)

// Fields is a shorthand for event attributes.
type Fields map[string]any

// Event is a single structured observation emitted by a pipeline stage.
type Event struct {
	Name   string
	Level  Level
	Fields Fields
	Err    error
	Time   time.Time
}

// Emitter receives structured events. Implementations must be safe for
// concurrent use because page fetch workers emit from several goroutines.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

func (f EmitterFunc) Emit(ev Event) { f(ev) }

type nop struct{}

func (nop) Emit(Event) {}

// Nop returns an emitter that discards everything.
func Nop() Emitter { return nop{} }

// OrNop returns e, or a discarding emitter when e is nil.
func OrNop(e Emitter) Emitter {
	if e == nil {
		return nop{}
	}
	return e
}

type multi []Emitter

func (m multi) Emit(ev Event) {
	for _, e := range m {
		e.Emit(ev)
	}
}

// Multi fans events out to every non-nil emitter.
func Multi(emitters ...Emitter) Emitter {
	out := make(multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Info builds an info-level event stamped with the current time.
func Info(name string, fields Fields) Event {
	return Event{Name: name, Level: LevelInfo, Fields: fields, Time: time.Now()}
}

// Debug builds a debug-level event.
func Debug(name string, fields Fields) Event {
	return Event{Name: name, Level: LevelDebug, Fields: fields, Time: time.Now()}
}

// Warn builds a warn-level event carrying err.
func Warn(name string, err error, fields Fields) Event {
	return Event{Name: name, Level: LevelWarn, Err: err, Fields: fields, Time: time.Now()}
}

// Recorder keeps every event in memory. Tests assert on it instead of
// scraping log output.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func floatField(f Fields, key string) float64 {
	switch v := f[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func stringField(f Fields, key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}
