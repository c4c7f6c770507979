package pulse

import (
	"fmt"
	"strings"
	"time"
)

// Program is a compiled instruction stream. The zero value is an empty
// program that cannot be loaded.
type Program struct {
	family       string
	instructions []Instruction
	referenceLen int
}

// Family names the compiler strategy that produced the program.
func (p Program) Family() string { return p.family }

// Len returns the number of instructions.
func (p Program) Len() int { return len(p.instructions) }

// At returns the instruction at address i.
func (p Program) At(i int) Instruction { return p.instructions[i] }

// Instructions returns a copy of the stream.
func (p Program) Instructions() []Instruction {
	out := make([]Instruction, len(p.instructions))
	copy(out, p.instructions)
	return out
}

// ReferenceLen is the number of leading instructions that belong to the
// reference-locked phase. The remainder is the differential phase.
func (p Program) ReferenceLen() int { return p.referenceLen }

// Total is the duration of one pass through the program.
func (p Program) Total() time.Duration {
	var d time.Duration
	for _, in := range p.instructions {
		d += in.Duration
	}
	return d
}

// PhaseTotals returns the summed durations of the reference and
// differential phases.
func (p Program) PhaseTotals() (reference, differential time.Duration) {
	for i, in := range p.instructions {
		if i < p.referenceLen {
			reference += in.Duration
		} else {
			differential += in.Duration
		}
	}
	return reference, differential
}

// Equal reports whether both programs hold the same instruction stream.
func (p Program) Equal(o Program) bool {
	if p.family != o.family || p.referenceLen != o.referenceLen || len(p.instructions) != len(o.instructions) {
		return false
	}
	for i := range p.instructions {
		if p.instructions[i] != o.instructions[i] {
			return false
		}
	}
	return true
}

// Listing renders the program as a fixed-width table, one instruction per
// line, suitable for logs and diffs.
func (p Program) Listing() string {
	var b strings.Builder
	ref, diff := p.PhaseTotals()
	fmt.Fprintf(&b, "# %s instructions=%d reference=%d total=%dns (reference %dns, differential %dns)\n",
		p.family, len(p.instructions), p.referenceLen,
		p.Total().Nanoseconds(), ref.Nanoseconds(), diff.Nanoseconds())
	for i, in := range p.instructions {
		phase := "R"
		if i >= p.referenceLen {
			phase = "D"
		}
		fmt.Fprintf(&b, "%04d %s %-8s %-14s %10dns", i, phase, in.Op, in.Channels, in.Duration.Nanoseconds())
		if in.Op == Branch {
			fmt.Fprintf(&b, " -> %04d", in.Target)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// builder accumulates instructions for a single compilation. It enforces
// the per-instruction hardware floor, the program length limit and mask
// validity as instructions are appended.
type builder struct {
	family string
	min    time.Duration
	max    int
	out    []Instruction
}

// reserve fails before any instruction is built when a program of n
// instructions would not fit in the generator.
func (b *builder) reserve(field string, n int) error {
	if b.max > 0 && n > b.max {
		return constraintf(b.family, field, "needs %d instructions, the generator holds %d", n, b.max)
	}
	b.out = make([]Instruction, 0, n)
	return nil
}

func (b *builder) emit(ch Channel, d time.Duration) error {
	return b.add(Instruction{Channels: ch, Op: Continue, Duration: d})
}

func (b *builder) branch(ch Channel, target int, d time.Duration) error {
	return b.add(Instruction{Channels: ch, Op: Branch, Target: target, Duration: d})
}

func (b *builder) add(in Instruction) error {
	addr := len(b.out)
	if b.max > 0 && addr >= b.max {
		return constraintf(b.family, "instructions", "program exceeds the %d-instruction memory", b.max)
	}
	if !in.Channels.Valid() {
		return constraintf(b.family, "channels", "instruction %d uses unnamed channel bits %s", addr, in.Channels)
	}
	if in.Duration <= 0 {
		return constraintf(b.family, "duration", "instruction %d has non-positive duration %dns", addr, in.Duration.Nanoseconds())
	}
	if in.Duration < b.min {
		return constraintf(b.family, "duration", "instruction %d duration %dns is below the hardware minimum %dns",
			addr, in.Duration.Nanoseconds(), b.min.Nanoseconds())
	}
	if in.Op == Branch && (in.Target < 0 || in.Target >= addr) {
		return constraintf(b.family, "target", "instruction %d branches to %d, which is not a prior address", addr, in.Target)
	}
	b.out = append(b.out, in)
	return nil
}

func (b *builder) program(referenceLen int) (Program, error) {
	if len(b.out) == 0 || b.out[len(b.out)-1].Op != Branch {
		return Program{}, constraintf(b.family, "", "stream does not end in a branch")
	}
	return Program{family: b.family, instructions: b.out, referenceLen: referenceLen}, nil
}
