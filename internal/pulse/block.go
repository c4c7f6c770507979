package pulse

import "math"

// FamilyBlock names the block differential compiler.
const FamilyBlock = "block"

// BlockSpec describes Repeats blocks of {laser Init, microwave Tau, dark Pad}
// under the reference line, followed by the same number of blocks with the
// microwave pulse and reference removed. Durations are in microseconds.
type BlockSpec struct {
	Init    float64
	Tau     float64
	Pad     float64
	Repeats int
}

func (BlockSpec) Family() string { return FamilyBlock }

func (s BlockSpec) compile(b *builder) (int, error) {
	if s.Repeats < 1 {
		return 0, constraintf(FamilyBlock, "repeats", "must be at least 1, got %d", s.Repeats)
	}
	if s.Pad < 0 {
		return 0, constraintf(FamilyBlock, "pad", "negative padding %v µs", s.Pad)
	}
	if s.Tau < 0 {
		return 0, constraintf(FamilyBlock, "tau", "negative stimulus duration %v µs", s.Tau)
	}
	// 3 reference and 2 differential instructions per repeat.
	if s.Repeats > math.MaxInt32/5 {
		return 0, constraintf(FamilyBlock, "repeats", "%d repeats cannot be programmed", s.Repeats)
	}
	if err := b.reserve("repeats", 5*s.Repeats); err != nil {
		return 0, err
	}
	laser, err := micros(FamilyBlock, "init", s.Init)
	if err != nil {
		return 0, err
	}
	tau, err := micros(FamilyBlock, "tau", s.Tau)
	if err != nil {
		return 0, err
	}
	pad, err := micros(FamilyBlock, "pad", s.Pad)
	if err != nil {
		return 0, err
	}

	for i := 0; i < s.Repeats; i++ {
		if err := b.emit(Reference|Laser, laser); err != nil {
			return 0, err
		}
		if err := b.emit(Reference|Microwave, tau); err != nil {
			return 0, err
		}
		if err := b.emit(Reference, pad); err != nil {
			return 0, err
		}
	}
	refLen := len(b.out)

	dark := tau + pad
	for i := 0; i < s.Repeats-1; i++ {
		if err := b.emit(Laser, laser); err != nil {
			return 0, err
		}
		if err := b.emit(Idle, dark); err != nil {
			return 0, err
		}
	}
	if err := b.emit(Laser, laser); err != nil {
		return 0, err
	}
	if err := b.branch(Idle, 0, dark); err != nil {
		return 0, err
	}
	return refLen, nil
}
