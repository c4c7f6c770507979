package windfreak

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/nvlab/pulsesweep/internal/device"
	"github.com/nvlab/pulsesweep/internal/serialport"
)

func connect(t *testing.T) (*SynthHD, *serialport.TestableSerialPort) {
	t.Helper()
	port := serialport.NewTestableSerialPort()
	var paths []string
	s, err := Connect(context.Background(), "/dev/ttyACM0", Options{Open: port.Opener(&paths)})
	require.NoError(t, err)
	require.Equal(t, []string{"/dev/ttyACM0"}, paths)
	return s, port
}

func TestConnect_DisablesBothOutputs(t *testing.T) {
	_, port := connect(t)
	assert.Equal(t, []string{"C0\n", "r0E0\n", "C1\n", "r0E0\n"}, port.Writes())
}

func TestSynthHD_ToneSequence(t *testing.T) {
	s, port := connect(t)
	ctx := context.Background()

	require.NoError(t, s.SetFrequency(ctx, ChannelA, 2.87e9))
	require.NoError(t, s.SetPower(ctx, ChannelA, -35))
	require.NoError(t, s.Enable(ctx, ChannelA))

	// Channel B was the last one selected during connect.
	assert.Equal(t, []string{"C0\n", "f2870.0000000\n", "W-35.000\n", "E1r1\n"}, port.Writes()[4:])
}

func TestSynthHD_RejectsOutOfRange(t *testing.T) {
	s, port := connect(t)
	ctx := context.Background()
	before := len(port.Writes())

	err := s.SetFrequency(ctx, ChannelA, 20e9)
	assert.True(t, device.IsHardwareError(err))
	assert.Error(t, s.SetPower(ctx, ChannelA, 30))
	assert.Error(t, s.Enable(ctx, 3))
	assert.Len(t, port.Writes(), before, "nothing sent for rejected commands")
}

func TestSynthHD_CloseAggregatesErrors(t *testing.T) {
	s, port := connect(t)
	port.WriteError = errors.New("usb reset")
	port.CloseError = errors.New("busy")

	err := s.Close()
	require.Error(t, err)
	assert.True(t, port.Closed, "port must be closed even after a failed disable")
	assert.Len(t, multierr.Errors(err), 2)
}

func TestConnect_ClosesPortOnFailure(t *testing.T) {
	port := serialport.NewTestableSerialPort()
	port.WriteError = errors.New("no device")

	_, err := Connect(context.Background(), "/dev/ttyACM0", Options{Open: port.Opener(nil)})
	require.Error(t, err)
	assert.True(t, device.IsHardwareError(err))
	assert.True(t, port.Closed)
}
