package sweep

import (
	"log"
	"sync/atomic"
)

// Event is one progress notification. Any field may be empty; Progress is
// only meaningful when HasProgress is set.
type Event struct {
	Line        string
	Status      string
	Progress    float64
	HasProgress bool

	// Point is set on the event emitted for each measured point.
	Point *Point
}

// Sink receives progress events. Emit must not block the sweep for long;
// implementations that hand events to slow consumers should drop instead.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// ChanSink delivers events on a buffered channel, dropping events when the
// buffer is full.
type ChanSink struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewChanSink returns a sink with room for size undelivered events.
func NewChanSink(size int) *ChanSink {
	if size < 1 {
		size = 1
	}
	return &ChanSink{ch: make(chan Event, size)}
}

func (s *ChanSink) Emit(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// C returns the channel events are delivered on.
func (s *ChanSink) C() <-chan Event { return s.ch }

// Close closes the delivery channel. Emit must not be called afterwards.
func (s *ChanSink) Close() { close(s.ch) }

// Dropped is the number of events discarded because the buffer was full.
func (s *ChanSink) Dropped() int64 { return s.dropped.Load() }

// LogSink writes event lines and status changes to a logger.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Emit(ev Event) {
	if s.Logger == nil {
		return
	}
	switch {
	case ev.Line != "" && ev.Status != "":
		s.Logger.Printf("[sweep] %s (%s)", ev.Line, ev.Status)
	case ev.Line != "":
		s.Logger.Printf("[sweep] %s", ev.Line)
	case ev.Status != "":
		s.Logger.Printf("[sweep] %s", ev.Status)
	}
}

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
