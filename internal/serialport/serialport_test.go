package serialport

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptions_Normalize_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.BaudRate != 9600 {
		t.Errorf("BaudRate = %d, want 9600", got.BaudRate)
	}
	if got.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", got.DataBits)
	}
	if got.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", got.StopBits)
	}
	if got.Parity != "N" {
		t.Errorf("Parity = %q, want %q", got.Parity, "N")
	}
	if got.ReadTimeout() != DefaultReadTimeout {
		t.Errorf("ReadTimeout = %v, want %v", got.ReadTimeout(), DefaultReadTimeout)
	}
}

func TestPortOptions_Normalize_Invalid(t *testing.T) {
	cases := []PortOptions{
		{BaudRate: 12345},
		{DataBits: 9},
		{StopBits: 3},
		{Parity: "M"},
		{ReadTimeoutMS: -1},
	}
	for _, opts := range cases {
		if _, err := opts.Normalize(); err == nil {
			t.Errorf("expected error for %+v, got nil", opts)
		}
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 19200, StopBits: 2, Parity: "even"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, 19200, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
}

func TestLineConn_Command(t *testing.T) {
	port := NewTestableSerialPort()
	c := NewLineConn(port, "\r")

	require.NoError(t, c.Command(context.Background(), "OUTX 0"))
	require.NoError(t, c.Command(context.Background(), "FREQ 1000\r"))
	assert.Equal(t, []string{"OUTX 0\r", "FREQ 1000\r"}, port.Writes())
}

func TestLineConn_Query(t *testing.T) {
	port := NewTestableSerialPort()
	port.Responder = func(w string) string {
		if strings.HasPrefix(w, "OUTP? 3") {
			return "1.234e-3\r"
		}
		return ""
	}
	c := NewLineConn(port, "\r")

	got, err := c.Query(context.Background(), "OUTP? 3")
	require.NoError(t, err)
	assert.Equal(t, "1.234e-3", got)

	_, err = c.Query(context.Background(), "IDN?")
	assert.ErrorIs(t, err, ErrNoReply)
}

// silentPort accepts every write and times out on every read the way
// go.bug.st/serial does, with (0, nil).
type silentPort struct {
	reads int
}

func (p *silentPort) Read([]byte) (int, error) {
	p.reads++
	return 0, nil
}

func (p *silentPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *silentPort) Close() error                { return nil }

func TestLineConn_QueryReadTimeout(t *testing.T) {
	port := &silentPort{}
	c := NewLineConn(port, "\r")

	_, err := c.Query(context.Background(), "OUTP? 3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, 1, port.reads, "a timed-out read must not be retried")

	_, err = c.Query(context.Background(), "OFLT?")
	assert.ErrorIs(t, err, ErrNoReply)
	assert.Equal(t, 2, port.reads)
}

func TestTestableSerialPort_EmptyReadTimesOut(t *testing.T) {
	port := NewTestableSerialPort()
	n, err := port.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.NoError(t, err)
}

func TestLineConn_WriteErrors(t *testing.T) {
	port := NewTestableSerialPort()
	c := NewLineConn(port, "\n")

	port.ShortWrite = true
	assert.ErrorIs(t, c.Command(context.Background(), "h1"), ErrWriteFailed)

	boom := errors.New("device unplugged")
	port.WriteError = boom
	assert.ErrorIs(t, c.Command(context.Background(), "h1"), boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Command(ctx, "h1"), context.Canceled)
}

func TestLineConn_Close(t *testing.T) {
	port := NewTestableSerialPort()
	port.CloseError = errors.New("busy")
	c := NewLineConn(port, "")

	assert.Error(t, c.Close())
	assert.True(t, port.Closed)
}

func TestTestableSerialPort_Opener(t *testing.T) {
	port := NewTestableSerialPort()
	var paths []string
	open := port.Opener(&paths)

	got, err := open("/dev/ttyACM0", PortOptions{})
	require.NoError(t, err)
	assert.Same(t, port, got)
	assert.Equal(t, []string{"/dev/ttyACM0"}, paths)

	_, err = open("/dev/ttyACM1", PortOptions{Parity: "X"})
	assert.Error(t, err)

	require.NoError(t, port.SetReadTimeout(time.Second))
	assert.Equal(t, time.Second, port.ReadTimeout)
}
