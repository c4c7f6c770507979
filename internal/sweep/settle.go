package sweep

import "time"

const (
	settleFloor      = time.Second
	settleMultiplier = 15
)

// SettleTime is how long to wait after changing the stimulus before the
// lock-in output can be trusted: fifteen filter time constants, but never
// less than one second.
func SettleTime(timeConstant time.Duration) time.Duration {
	wait := settleMultiplier * timeConstant
	if wait < settleFloor {
		return settleFloor
	}
	return wait
}
