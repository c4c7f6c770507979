package sr830

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/serialport"
)

// fakeSR830 answers queries the way the instrument does over RS-232.
func fakeSR830(oflt, r string) func(string) string {
	return func(w string) string {
		switch strings.TrimSuffix(w, "\r") {
		case "*IDN?":
			return "Stanford_Research_Systems,SR830,s/n12345,ver1.07\r"
		case "OFLT?":
			return oflt + "\r"
		case "OUTP? 3":
			return r + "\r"
		}
		return ""
	}
}

func connect(t *testing.T, oflt, r string) (*LockIn, *serialport.TestableSerialPort) {
	t.Helper()
	port := serialport.NewTestableSerialPort()
	port.Responder = fakeSR830(oflt, r)
	l, err := Connect(context.Background(), "/dev/ttyUSB0", Options{Open: port.Opener(nil)})
	require.NoError(t, err)
	return l, port
}

func TestConnect(t *testing.T) {
	_, port := connect(t, "8", "0")
	assert.Equal(t, []string{"OUTX 0\r", "*IDN?\r"}, port.Writes())
}

func TestTimeConstant(t *testing.T) {
	tests := []struct {
		oflt string
		want time.Duration
	}{
		{"0", 10 * time.Microsecond},
		{"8", 100 * time.Millisecond},
		{"9", 300 * time.Millisecond},
		{"10", time.Second},
		{"19", 30000 * time.Second},
	}
	for _, tt := range tests {
		l, _ := connect(t, tt.oflt, "0")
		got, err := l.TimeConstant(context.Background())
		require.NoError(t, err, "OFLT %s", tt.oflt)
		assert.Equal(t, tt.want, got, "OFLT %s", tt.oflt)
	}
}

func TestTimeConstant_BadReply(t *testing.T) {
	for _, oflt := range []string{"20", "-1", "fast"} {
		l, _ := connect(t, oflt, "0")
		_, err := l.TimeConstant(context.Background())
		assert.True(t, device.IsHardwareError(err), "OFLT %q: %v", oflt, err)
	}
}

func TestReadMagnitude(t *testing.T) {
	l, _ := connect(t, "8", "1.2345E-3")
	r, err := l.ReadMagnitude(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1.2345e-3, r, 1e-12)

	l, _ = connect(t, "8", "overload")
	_, err = l.ReadMagnitude(context.Background())
	assert.True(t, device.IsHardwareError(err))
}

func TestConnect_NoReply(t *testing.T) {
	port := serialport.NewTestableSerialPort()
	_, err := Connect(context.Background(), "/dev/ttyUSB0", Options{Open: port.Opener(nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, serialport.ErrNoReply)
	assert.True(t, port.Closed)
}

func TestConnect_FailureReportsCloseError(t *testing.T) {
	port := serialport.NewTestableSerialPort()
	port.CloseError = errors.New("port busy")
	_, err := Connect(context.Background(), "/dev/ttyUSB0", Options{Open: port.Opener(nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, serialport.ErrNoReply)
	assert.ErrorIs(t, err, port.CloseError)
	assert.True(t, port.Closed)
}

func TestClose(t *testing.T) {
	l, port := connect(t, "8", "0")
	require.NoError(t, l.Close())
	assert.True(t, port.Closed)
}
