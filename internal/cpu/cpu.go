// Package cpu implements the MIX instruction interpreter: decode,
// validate, execute, and the per-instruction timing table that drives the
// discrete-event clock.
package cpu

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/ioc"
	"github.com/mixvm/mix/internal/word"
)

// TickCode is the outer-loop signal a tick produces.
type TickCode int

const (
	TickContinue TickCode = 0
	TickErr      TickCode = -1
	TickHalt     TickCode = -2
)

// ErrHalt is returned by execute when the instruction was HLT.
var ErrHalt = errors.New("cpu: halt")

// PCErr wraps a validation or post-check failure; the CPU halts on it,
// matching the original's PC_ERR return code.
type PCErr struct{ msg string }

func (e *PCErr) Error() string { return e.msg }

func pcErrf(format string, args ...any) error {
	return &PCErr{msg: fmt.Sprintf(format, args...)}
}

// CPU holds the program counter and the previous instruction's completion
// timestamp; registers and memory live in the shared Core.
type CPU struct {
	Core       *core.Core
	IO         *ioc.Coprocessor
	PC         int
	previousTS int
	log        *logrus.Entry
}

// New builds a CPU over the given core image and I/O coprocessor, program
// counter starting at 0.
func New(c *core.Core, io *ioc.Coprocessor) *CPU {
	return &CPU{Core: c, IO: io, log: logrus.WithField("component", "cpu")}
}

func arithOp(c int) bool { return c >= 1 && c <= 4 }

// memOp covers LD*/LD*N/ST*/STJ/STZ, the instructions whose F is a field
// specifier (L:R). MOVE (opcode 7) shares the address-validation range
// with these but its F is a plain word count, not a field, so it is
// deliberately excluded here.
func memOp(c int) bool   { return c >= 8 && c <= 33 }
func jmpOp(c int) bool   { return c == 34 || (c >= 38 && c <= 47) }
func transOp(c int) bool { return c >= 48 && c <= 55 }
func cmpOp(c int) bool   { return c >= 56 }

// register returns a pointer to the register opcode C's low 3 bits select:
// 0 -> A, 1..6 -> I1..I6, 7 -> X.
func (p *CPU) register(c int) *word.Word {
	switch c % 8 {
	case 0:
		return &p.Core.A
	case 7:
		return &p.Core.X
	default:
		return p.Core.Index(c % 8)
	}
}

// Tick executes the instruction at PC if its timing has come due.
func (p *CPU) Tick(now int) (TickCode, error) {
	w := p.Core.Memory[p.PC]
	if now < p.getTS(w) {
		return TickContinue, nil
	}
	nextPC, err := p.execute(w, now)
	p.previousTS = now
	if errors.Is(err, ErrHalt) {
		return TickHalt, nil
	}
	var pe *PCErr
	if errors.As(err, &pe) {
		p.log.WithError(err).Error("halting on PC_ERR")
		return TickErr, err
	}
	if err != nil {
		return TickErr, err
	}
	p.PC = nextPC
	return TickContinue, nil
}

// NextTS returns the completion timestamp of the instruction at PC.
func (p *CPU) NextTS() int {
	return p.getTS(p.Core.Memory[p.PC])
}

func (p *CPU) getTS(w word.Word) int {
	c := int(w.Byte(5))
	f := int(w.Byte(4))
	ts := p.previousTS
	switch {
	case c == 1 || c == 2 || c == 6 || (c >= 8 && c < 34) || c >= 56:
		ts += 2
	case c == 3 || (c == 5 && (f == 0 || f == 1)):
		ts += 10
	case c == 4:
		ts += 12
	case c == 7:
		ts += 1 + 2*f
	case (c >= 35 && c < 38) || (c == 34 && w.Byte(3) == 0 && w.Field(0, 2).Int() == p.PC):
		free := p.IO.FreeTS(f)
		if free < 0 {
			ts += 1
		} else {
			ts = free + 1
		}
	default:
		ts += 1
	}
	return ts
}

func (p *CPU) execute(w word.Word, now int) (int, error) {
	aa := w.Field(0, 2)
	i := int(w.Byte(3))
	f := int(w.Byte(4))
	c := int(w.Byte(5))

	if i < 0 || i > 6 {
		return 0, pcErrf("invalid index register I%d", i)
	}

	m := aa
	if i > 0 {
		m = m.Add(*p.Core.Index(i))
	}
	mAddr := m.Int()

	if ((arithOp(c) || memOp(c) || jmpOp(c) || cmpOp(c) || c == 7) && (mAddr < 0 || mAddr >= core.MemSize)) ||
		(c == 6 && mAddr < 0) {
		return 0, pcErrf("invalid M=%d for opcode %d", mAddr, c)
	}

	l, r := f/8, f%8
	switch {
	case (arithOp(c) || memOp(c) || cmpOp(c)) && (l > r || r > 5):
		return 0, pcErrf("invalid field (%d:%d) for opcode %d", l, r, c)
	case c == 5 && f > 2:
		return 0, pcErrf("invalid F=%d for special op", f)
	case c == 6 && f > 5:
		return 0, pcErrf("invalid F=%d for shift op", f)
	case c == 39 && f > 9:
		return 0, pcErrf("invalid F=%d for global jump", f)
	case jmpOp(c) && c != 34 && c != 38 && c != 39 && f > 5:
		return 0, pcErrf("invalid F=%d for register jump", f)
	case transOp(c) && f > 3:
		return 0, pcErrf("invalid F=%d for transfer op", f)
	}

	reg := p.register(c)
	var mem *word.Word
	if mAddr >= 0 && mAddr < core.MemSize {
		mem = &p.Core.Memory[mAddr]
	} else {
		var dummy word.Word
		mem = &dummy
	}

	nextPC := (p.PC + 1) % core.MemSize

	switch {
	case c == 0: // NOP

	case c == 1: // ADD
		p.Core.A = p.Core.A.Add(mem.Field(l, r))

	case c == 2: // SUB
		p.Core.A = p.Core.A.Add(mem.Field(l, r).Neg())

	case c == 3: // MUL
		p.Core.A, p.Core.X = word.Mul(p.Core.A, *mem)

	case c == 4: // DIV
		q, r, overflow := word.Div(p.Core.A, p.Core.X, *mem)
		if overflow {
			p.Core.Overflow = true
		} else {
			p.Core.A, p.Core.X = q, r
		}

	case c == 5:
		switch f {
		case 0: // NUM
			num := int64(0)
			ab := p.Core.A.Bytes()
			xb := p.Core.X.Bytes()
			for _, b := range ab {
				num = num*10 + int64(b%10)
			}
			for _, b := range xb {
				num = num*10 + int64(b%10)
			}
			if num > word.WordMax {
				p.Core.Overflow = true
			}
			nw := word.New(int(num % (word.WordMax + 1)))
			p.Core.A = word.NewFromBytes(p.Core.A.Sign(), nw.Bytes())
		case 1: // CHR
			num := p.Core.A.Magnitude()
			var newA, newX [5]byte
			for i := 4; i >= 0; i-- {
				newX[i] = byte(30 + num%10)
				num /= 10
			}
			for i := 4; i >= 0; i-- {
				newA[i] = byte(30 + num%10)
				num /= 10
			}
			p.Core.A = word.NewFromBytes(p.Core.A.Sign(), newA)
			p.Core.X = word.NewFromBytes(p.Core.X.Sign(), newX)
		case 2: // HLT
			return 0, ErrHalt
		}

	case c == 6: // shifts
		if err := p.shift(f, mAddr); err != nil {
			return 0, err
		}

	case c == 7: // MOVE
		dest := p.Core.Index(1).Int()
		for k := 0; k < f; k++ {
			k0, k1 := mAddr+k, dest+k
			if k0 < 0 || k1 < 0 || k0 >= core.MemSize || k1 >= core.MemSize {
				return 0, pcErrf("MOVE overran memory at k0=%d k1=%d", k0, k1)
			}
			p.Core.Memory[k1] = p.Core.Memory[k0]
		}
		*p.Core.Index(1) = p.Core.Index(1).Add(word.New(f))

	case c >= 8 && c < 16: // LD*
		*reg = mem.Field(l, r)

	case c >= 16 && c < 24: // LD*N
		*reg = mem.Neg().Field(l, r)

	case c >= 24 && c < 32: // ST*
		*mem = mem.WithField(*reg, l, r)

	case c == 32: // STJ
		*mem = mem.WithField(p.Core.J, l, r)

	case c == 33: // STZ
		*mem = mem.WithField(word.New(0), l, r)

	case c == 34: // JBUS
		if p.IO.Busy(f) {
			nextPC = mAddr
		}

	case c == 35: // IOC
		if err := p.IO.Stage(ioc.OpIoc, f, mAddr, p.Core.X, now); err != nil {
			return 0, pcErrf("%v", err)
		}

	case c == 36: // IN
		if err := p.IO.Stage(ioc.OpIn, f, mAddr, p.Core.X, now); err != nil {
			return 0, pcErrf("%v", err)
		}

	case c == 37: // OUT
		if err := p.IO.Stage(ioc.OpOut, f, mAddr, p.Core.X, now); err != nil {
			return 0, pcErrf("%v", err)
		}

	case c == 38: // JRED
		if !p.IO.Busy(f) {
			nextPC = mAddr
		}

	case c == 39: // global jumps
		switch {
		case f == 1: // JSJ
			nextPC = mAddr
		case f == 2 && p.Core.Overflow: // JOV
			p.Core.Overflow = false
			p.Core.J = word.New(nextPC)
			nextPC = mAddr
		case f == 0,
			f == 3 && !p.Core.Overflow,
			f == 4 && p.Core.Comparison == word.Less,
			f == 5 && p.Core.Comparison == word.Equal,
			f == 6 && p.Core.Comparison == word.Greater,
			f == 7 && p.Core.Comparison != word.Less,
			f == 8 && p.Core.Comparison != word.Equal,
			f == 9 && p.Core.Comparison != word.Greater:
			p.Core.J = word.New(nextPC)
			nextPC = mAddr
		}

	case c >= 40 && c < 48: // register-relative jumps
		v := reg.Int()
		if (f == 0 && v < 0) ||
			(f == 1 && v == 0) ||
			(f == 2 && v > 0) ||
			(f == 3 && v >= 0) ||
			(f == 4 && v != 0) ||
			(f == 5 && v <= 0) {
			p.Core.J = word.New(nextPC)
			nextPC = mAddr
		}

	case c >= 48 && c < 56: // transfers
		switch f {
		case 0: // INC
			*reg = reg.Add(m)
		case 1: // DEC
			*reg = reg.Add(m.Neg())
		case 2: // ENT
			*reg = m
		case 3: // ENN
			*reg = m.Neg()
		}

	default: // CMP*
		rf := reg.Field(l, r)
		mf := mem.Field(l, r)
		p.Core.Comparison = rf.Compare(mf)
	}

	for i := 1; i <= 6; i++ {
		if p.Core.Index(i).IndexOverflow() {
			return 0, pcErrf("index register I%d overflowed", i)
		}
	}
	if p.Core.A.Overflow() {
		p.Core.Overflow = true
		p.Core.A = p.Core.A.WithoutOverflow()
	}
	if p.Core.X.Overflow() {
		p.Core.Overflow = true
		p.Core.X = p.Core.X.WithoutOverflow()
	}

	return nextPC, nil
}

func (p *CPU) shift(f, m int) error {
	sm := m
	if f%2 == 0 {
		sm = -m
	}
	switch {
	case f < 2: // SLA, SRA
		var newA [5]byte
		ab := p.Core.A.Bytes()
		for i := 0; i < 5; i++ {
			if i+sm >= 0 && i+sm < 5 {
				newA[i+sm] = ab[i]
			}
		}
		p.Core.A = word.NewFromBytes(p.Core.A.Sign(), newA)
	case f >= 2 && f < 4: // SLAX, SRAX
		var newA, newX [5]byte
		combined := combinedBytes(p.Core.A, p.Core.X)
		for i := 0; i < 10; i++ {
			if i+sm >= 0 && i+sm < 5 {
				newA[i+sm] = combined[i]
			} else if i+sm >= 5 && i+sm < 10 {
				newX[i+sm-5] = combined[i]
			}
		}
		p.Core.A = word.NewFromBytes(p.Core.A.Sign(), newA)
		p.Core.X = word.NewFromBytes(p.Core.X.Sign(), newX)
	default: // SLC, SRC
		var newA, newX [5]byte
		combined := combinedBytes(p.Core.A, p.Core.X)
		for i := 0; i < 10; i++ {
			pos := ((i+sm)%10 + 10) % 10
			if pos < 5 {
				newA[pos] = combined[i]
			} else {
				newX[pos-5] = combined[i]
			}
		}
		p.Core.A = word.NewFromBytes(p.Core.A.Sign(), newA)
		p.Core.X = word.NewFromBytes(p.Core.X.Sign(), newX)
	}
	return nil
}

func combinedBytes(a, x word.Word) [10]byte {
	var out [10]byte
	ab, xb := a.Bytes(), x.Bytes()
	copy(out[:5], ab[:])
	copy(out[5:], xb[:])
	return out
}
