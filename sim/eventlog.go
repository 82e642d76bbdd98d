package sim

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// DefaultEventLogSize matches the operator panel, which shows 20 lines.
const DefaultEventLogSize = 20

// EventSink receives operator facing messages.
type EventSink interface {
	Log(message string, sev Severity)
}

type Event struct {
	Time     time.Time `json:"time"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// EventLog keeps the most recent events, newest first, and mirrors each one
// to a zap logger.
type EventLog struct {
	mu      sync.Mutex
	max     int
	entries []Event
	logger  *zap.Logger
	now     func() time.Time
}

func NewEventLog(max int, l *zap.Logger) *EventLog {
	if max <= 0 {
		max = DefaultEventLogSize
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &EventLog{
		max:    max,
		logger: l,
		now:    time.Now,
	}
}

func (l *EventLog) Log(message string, sev Severity) {
	switch sev {
	case Error:
		l.logger.Error(message)
	case Warning:
		l.logger.Warn(message)
	default:
		l.logger.Info(message, zap.String("severity", string(sev)))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ev := Event{Time: l.now(), Message: message, Severity: sev}
	l.entries = append([]Event{ev}, l.entries...)
	if len(l.entries) > l.max {
		l.entries = l.entries[:l.max]
	}
}

// Entries returns a copy of the retained events, newest first.
func (l *EventLog) Entries() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
