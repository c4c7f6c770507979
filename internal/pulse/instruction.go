// Package pulse compiles experiment timing parameters into pattern generator
// instruction streams.
package pulse

import (
	"fmt"
	"strings"
	"time"
)

// Channel is a bitmask of TTL output lines on the pattern generator.
type Channel uint32

// Output lines, numbered to match the generator's front-panel wiring.
const (
	Reference Channel = 1 << iota // lock-in reference input
	Laser                         // laser modulation
	Microwave                     // microwave I-channel switch

	// Idle drives every line low.
	Idle Channel = 0

	allChannels = Reference | Laser | Microwave
)

var channelNames = []struct {
	bit  Channel
	name string
}{
	{Reference, "REF"},
	{Laser, "LASER"},
	{Microwave, "MW_I"},
}

// Valid reports whether c is a union of named channel bits.
func (c Channel) Valid() bool {
	return c&^allChannels == 0
}

func (c Channel) String() string {
	if c == Idle {
		return "-"
	}
	var parts []string
	rest := c
	for _, n := range channelNames {
		if c&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// Opcode is the flow-control word attached to each instruction.
type Opcode uint8

const (
	// Continue advances to the next instruction when the duration elapses.
	Continue Opcode = iota
	// Branch jumps to Target when the duration elapses.
	Branch
)

func (o Opcode) String() string {
	switch o {
	case Continue:
		return "CONTINUE"
	case Branch:
		return "BRANCH"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// Instruction holds one output state for one duration.
type Instruction struct {
	Channels Channel
	Op       Opcode
	Target   int // only meaningful for Branch
	Duration time.Duration
}

func (in Instruction) String() string {
	if in.Op == Branch {
		return fmt.Sprintf("%s %s -> %d %dns", in.Op, in.Channels, in.Target, in.Duration.Nanoseconds())
	}
	return fmt.Sprintf("%s %s %dns", in.Op, in.Channels, in.Duration.Nanoseconds())
}
