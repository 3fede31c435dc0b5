// Package clock drives the discrete-event simulation: a single logical
// timestamp that jumps directly to the next scheduled event instead of
// single-stepping, ticking the CPU before the I/O coprocessor at every
// timestamp.
package clock

import (
	"github.com/sirupsen/logrus"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/cpu"
	"github.com/mixvm/mix/internal/ioc"
)

// Clock composes a CPU and an I/O coprocessor over a shared logical
// timestamp.
type Clock struct {
	ts  int
	cpu *cpu.CPU
	io  *ioc.Coprocessor
	mem *core.Core
	log *logrus.Entry
}

// New builds a Clock starting at timestamp 0.
func New(c *cpu.CPU, io *ioc.Coprocessor, mem *core.Core) *Clock {
	return &Clock{cpu: c, io: io, mem: mem, log: logrus.WithField("component", "clock")}
}

// TS returns the current logical timestamp.
func (cl *Clock) TS() int { return cl.ts }

// Tick advances the timestamp by one and ticks the CPU, then the I/O
// coprocessor, in that order. The order matters: a device that becomes
// free at this same timestamp is still seen as busy by the CPU at the
// instant of issue.
func (cl *Clock) Tick() (cpu.TickCode, error) {
	cl.ts++
	return cl.tickAt(cl.ts)
}

// TickAt jumps the timestamp directly to ts and ticks CPU then I/O. Used
// by Step to skip over idle intervals.
func (cl *Clock) TickAt(ts int) (cpu.TickCode, error) {
	cl.ts = ts
	return cl.tickAt(ts)
}

func (cl *Clock) tickAt(ts int) (cpu.TickCode, error) {
	code, err := cl.cpu.Tick(ts)
	if err != nil {
		return code, err
	}
	if ioErr := cl.io.Tick(ts, cl.mem); ioErr != nil {
		cl.log.WithError(ioErr).Error("device tick failed")
		return cpu.TickErr, ioErr
	}
	return code, nil
}

// NextTS is the minimum of the CPU's and the I/O coprocessor's next
// scheduled timestamp.
func (cl *Clock) NextTS() int {
	cn := cl.cpu.NextTS()
	in := cl.io.NextTS(cl.ts)
	if in == -1 {
		return cn
	}
	if cn < in {
		return cn
	}
	return in
}

// Step jumps the clock directly to its next scheduled event and ticks.
func (cl *Clock) Step() (cpu.TickCode, error) {
	return cl.TickAt(cl.NextTS())
}

// Run steps the clock until a tick returns a non-continue code (HLT,
// PC_ERR, or a device fault) or an error occurs.
func (cl *Clock) Run() (cpu.TickCode, error) {
	for {
		code, err := cl.Step()
		if err != nil {
			return code, err
		}
		if code != cpu.TickContinue {
			return code, nil
		}
	}
}
