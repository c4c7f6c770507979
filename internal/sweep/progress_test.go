package sweep

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChanSink_DropsWhenFull(t *testing.T) {
	s := NewChanSink(2)
	s.Emit(Event{Line: "a"})
	s.Emit(Event{Line: "b"})
	s.Emit(Event{Line: "c"})

	assert.Equal(t, int64(1), s.Dropped())
	assert.Equal(t, "a", (<-s.C()).Line)
	assert.Equal(t, "b", (<-s.C()).Line)

	s.Emit(Event{Line: "d"})
	assert.Equal(t, "d", (<-s.C()).Line)

	s.Close()
	_, ok := <-s.C()
	assert.False(t, ok)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Logger: log.New(&buf, "", 0)}

	s.Emit(Event{Line: "f = 2.870000 GHz → R = 0.0012 V", Status: "Point 1 / 61"})
	s.Emit(Event{Status: "Cancelled"})
	s.Emit(Event{Progress: 0.5, HasProgress: true})
	LogSink{}.Emit(Event{Line: "ignored"})

	assert.Equal(t, "[sweep] f = 2.870000 GHz → R = 0.0012 V (Point 1 / 61)\n[sweep] Cancelled\n", buf.String())
}

func TestMultiSink(t *testing.T) {
	var a, b []string
	m := MultiSink{
		SinkFunc(func(ev Event) { a = append(a, ev.Line) }),
		nil,
		SinkFunc(func(ev Event) { b = append(b, ev.Line) }),
	}
	m.Emit(Event{Line: "x"})
	assert.Equal(t, []string{"x"}, a)
	assert.Equal(t, []string{"x"}, b)
}
