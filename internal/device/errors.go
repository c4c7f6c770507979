package device

import (
	"errors"
	"fmt"
)

// HardwareCommandError wraps a failed instrument command.
type HardwareCommandError struct {
	Device string // "generator", "synthesizer", "lockin"
	Op     string
	Err    error
}

func (e *HardwareCommandError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Device, e.Op, e.Err)
}

func (e *HardwareCommandError) Unwrap() error { return e.Err }

// Wrap returns nil if err is nil, otherwise a HardwareCommandError. An err
// that already is a HardwareCommandError is returned unchanged.
func Wrap(device, op string, err error) error {
	if err == nil {
		return nil
	}
	var hce *HardwareCommandError
	if errors.As(err, &hce) {
		return err
	}
	return &HardwareCommandError{Device: device, Op: op, Err: err}
}

// IsHardwareError reports whether err is or wraps a HardwareCommandError.
func IsHardwareError(err error) bool {
	var hce *HardwareCommandError
	return errors.As(err, &hce)
}

// Device names used in HardwareCommandError.
const (
	NameGenerator   = "generator"
	NameSynthesizer = "synthesizer"
	NameLockIn      = "lockin"
)
