package spinapi

// DefaultClockMHz is the core clock of the PulseBlaster ESR boards.
const DefaultClockMHz = 100.0

// Options configures Open.
type Options struct {
	Board    int
	ClockMHz float64
}

func (o Options) clockMHz() float64 {
	if o.ClockMHz <= 0 {
		return DefaultClockMHz
	}
	return o.ClockMHz
}
