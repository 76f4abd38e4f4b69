package batch

import "time"

// Status is the coarse run state shown by a front-end
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

// Level tags a log entry for display
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Event is an immutable progress message emitted by the batch driver.
// Front-ends apply events on their own goroutine; the driver never touches their state.
type Event interface {
	event()
}

// LogEntry is one line of the activity log. Path is set when the line refers to a saved output.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
}

// StatusChanged reports a transition of the run status
type StatusChanged struct {
	Status Status
}

// FileProcessed reports the outcome of one file. Index is 1-based.
type FileProcessed struct {
	Index  int
	Total  int
	Result FileResult
}

// RunFinished is emitted once per run with the refreshed recent-outputs list
type RunFinished struct {
	Summary Summary
	Outputs []string
}

func (LogEntry) event()      {}
func (StatusChanged) event() {}
func (FileProcessed) event() {}
func (RunFinished) event()   {}

// Sink receives events
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// ChanSink forwards events to a channel. Sends block, so the receiver must keep draining.
type ChanSink chan<- Event

func (c ChanSink) Emit(e Event) { c <- e }

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})

// NewLogEntry stamps a log entry with the current time
func NewLogEntry(level Level, message string) LogEntry {
	return LogEntry{Time: time.Now(), Level: level, Message: message}
}
