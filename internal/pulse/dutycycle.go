package pulse

import "math"

// FamilyDutyCycle names the duty-cycle differential compiler.
const FamilyDutyCycle = "duty-cycle"

// DutyCycleSpec describes a square-wave reference of period Period whose
// high half alternates laser and microwave sub-pulses of width Width. The
// low half repeats the alternation with the microwave slots left dark.
// Both values are in microseconds.
type DutyCycleSpec struct {
	Period float64
	Width  float64
}

func (DutyCycleSpec) Family() string { return FamilyDutyCycle }

// slot is the position in the laser/stimulus alternation.
type slot uint8

const (
	laserSlot slot = iota
	stimulusSlot
)

func (s slot) next() slot {
	if s == laserSlot {
		return stimulusSlot
	}
	return laserSlot
}

func (s slot) referenceMask() Channel {
	if s == laserSlot {
		return Reference | Laser
	}
	return Reference | Microwave
}

func (s slot) differentialMask() Channel {
	if s == laserSlot {
		return Laser
	}
	return Idle
}

func (s DutyCycleSpec) compile(b *builder) (int, error) {
	period, err := micros(FamilyDutyCycle, "period", s.Period)
	if err != nil {
		return 0, err
	}
	width, err := micros(FamilyDutyCycle, "width", s.Width)
	if err != nil {
		return 0, err
	}
	if width <= 0 {
		return 0, constraintf(FamilyDutyCycle, "width", "must be positive, got %v µs", s.Width)
	}
	// (period/2) mod width == 0, kept in integer nanoseconds so an odd
	// period cannot be halved inexactly.
	if period%(2*width) != 0 {
		return 0, constraintf(FamilyDutyCycle, "width",
			"half period %v µs is not a whole multiple of width %v µs", s.Period/2, s.Width)
	}
	half := period / (2 * width)
	if half < 1 {
		return 0, constraintf(FamilyDutyCycle, "period", "%v µs gives %d sub-pulses per half period", s.Period, half)
	}
	if half > math.MaxInt32 {
		return 0, constraintf(FamilyDutyCycle, "width", "%v µs gives %d sub-pulses per half period", s.Width, half)
	}
	n := int(half)
	// n reference sub-pulses, n-1 differential ones and the branch.
	if err := b.reserve("width", 2*n); err != nil {
		return 0, err
	}

	cur := laserSlot
	for i := 0; i < n; i++ {
		if err := b.emit(cur.referenceMask(), width); err != nil {
			return 0, err
		}
		cur = cur.next()
	}
	for i := 0; i < n-1; i++ {
		if err := b.emit(cur.differentialMask(), width); err != nil {
			return 0, err
		}
		cur = cur.next()
	}
	// Close the loop. 2n-1 transitions from a laser slot always leave us on a
	// stimulus slot, so the branch is dark and the period comes out exact.
	if cur == laserSlot {
		if err := b.emit(Laser, width); err != nil {
			return 0, err
		}
	}
	if err := b.branch(Idle, 0, width); err != nil {
		return 0, err
	}
	return n, nil
}
