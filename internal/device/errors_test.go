package device

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Wrap(NameLockIn, "read", nil))

	err := Wrap(NameLockIn, "read R", io.ErrUnexpectedEOF)
	assert.EqualError(t, err, "lockin: read R: unexpected EOF")
	assert.True(t, IsHardwareError(err))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	// Already wrapped errors keep their original device and op.
	again := Wrap(NameGenerator, "start", fmt.Errorf("point 3: %w", err))
	var hce *HardwareCommandError
	assert.True(t, errors.As(again, &hce))
	assert.Equal(t, NameLockIn, hce.Device)
	assert.Equal(t, "read R", hce.Op)
}

func TestIsHardwareError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsHardwareError(nil))
	assert.False(t, IsHardwareError(errors.New("plain")))
	assert.True(t, IsHardwareError(fmt.Errorf("ctx: %w", &HardwareCommandError{Device: NameSynthesizer, Op: "f", Err: io.EOF})))
}
