// Package ioc implements the I/O coprocessor: validation, staging, and
// timed completion of device instructions, coordinated with the CPU
// through a shared logical timestamp.
package ioc

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/device"
	"github.com/mixvm/mix/internal/word"
)

// DiskSeekFactor divides both latencies when a disk operation targets the
// block the head is already positioned at.
const DiskSeekFactor = 10

// Op is the category of device instruction the CPU can stage.
type Op int

const (
	OpIn Op = iota
	OpOut
	OpIoc
)

func (o Op) String() string {
	switch o {
	case OpIn:
		return "IN"
	case OpOut:
		return "OUT"
	case OpIoc:
		return "IOC"
	default:
		return "?"
	}
}

type inFlight struct {
	op                 Op
	m                  int
	x                  word.Word
	doIOTS, finishTS   int
}

// Coprocessor owns the device table and the in-flight state of each
// device (do_io_ts, finish_ts, cur_inst).
type Coprocessor struct {
	devices [device.NumDevices]*device.Device
	state   [device.NumDevices]inFlight
	log     *logrus.Entry
}

// New wraps an already-open device table.
func New(devices [device.NumDevices]*device.Device) *Coprocessor {
	c := &Coprocessor{devices: devices, log: logrus.WithField("component", "ioc")}
	for i := range c.state {
		c.state[i] = inFlight{doIOTS: -1, finishTS: -1}
	}
	return c
}

// Busy reports whether device f has an in-flight operation. An F outside
// the device table is never busy; the CPU calls this for JBUS/JRED before
// Stage has had a chance to reject an out-of-range F.
func (c *Coprocessor) Busy(f int) bool {
	if f < 0 || f >= device.NumDevices {
		return false
	}
	return c.state[f].finishTS != -1
}

// FreeTS returns device f's finish_ts, or -1 if it is idle or f is outside
// the device table.
func (c *Coprocessor) FreeTS(f int) int {
	if f < 0 || f >= device.NumDevices {
		return -1
	}
	return c.state[f].finishTS
}

// NextTS returns the minimum scheduled do_io_ts/finish_ts at or after now,
// or -1 if no device has anything scheduled.
func (c *Coprocessor) NextTS(now int) int {
	best := -1
	consider := func(ts int) {
		if ts < now {
			return
		}
		if best == -1 || ts < best {
			best = ts
		}
	}
	for _, s := range c.state {
		if s.doIOTS != -1 {
			consider(s.doIOTS)
		}
		if s.finishTS != -1 {
			consider(s.finishTS)
		}
	}
	return best
}

// Stage validates and begins a device instruction, per the Execute
// contract the CPU drives: F must be in range, M must be valid for the
// operation, and the device must not already be busy.
func (c *Coprocessor) Stage(op Op, f, m int, x word.Word, now int) error {
	if f < 0 || f >= device.NumDevices {
		return fmt.Errorf("ioc: device index %d out of range", f)
	}
	dev := c.devices[f]
	if dev == nil {
		return fmt.Errorf("ioc: device %d not configured", f)
	}
	if c.Busy(f) {
		return fmt.Errorf("ioc: device %d is busy", f)
	}
	if op != OpIoc {
		if m < 0 || m > word.AddrMax {
			return fmt.Errorf("ioc: address %d out of range for device %d", m, f)
		}
		if dev.Kind == device.KindDisk {
			if x.Int() < 0 || x.Int() >= dev.NumBlocks {
				return fmt.Errorf("ioc: device %d bad block number %d in X", f, x.Int())
			}
		}
	} else {
		switch dev.Kind {
		case device.KindDisk:
			if m != 0 {
				return fmt.Errorf("ioc: disk IOC requires M=0, got %d", m)
			}
		case device.KindTape:
			target := m + dev.Pos
			if target < 0 || target >= dev.NumBlocks {
				return fmt.Errorf("ioc: tape IOC moves to invalid block %d", target)
			}
		}
	}

	doIOTS := now + dev.TimeToDoIO
	finishTS := now + dev.TimeToFinish
	if dev.Kind == device.KindDisk && x.Int() == dev.Pos {
		doIOTS = now + dev.TimeToDoIO/DiskSeekFactor
		finishTS = now + dev.TimeToFinish/DiskSeekFactor
	}
	c.state[f] = inFlight{op: op, m: m, x: x, doIOTS: doIOTS, finishTS: finishTS}
	c.log.WithFields(logrus.Fields{"device": f, "op": op.String(), "do_io_ts": doIOTS, "finish_ts": finishTS}).Debug("staged device operation")
	return nil
}

// Tick runs the transfer for any device whose do_io_ts has arrived, and
// frees any device whose finish_ts has arrived. now is the clock's
// current logical timestamp.
func (c *Coprocessor) Tick(now int, mem *core.Core) error {
	for f := range c.devices {
		s := &c.state[f]
		if s.doIOTS == now {
			if err := c.transfer(f, mem); err != nil {
				return err
			}
			s.doIOTS = -1
		}
		if s.finishTS == now {
			s.finishTS = -1
			s.op = 0
			s.m = 0
			s.x = word.Word{}
		}
	}
	return nil
}

func (c *Coprocessor) transfer(f int, mem *core.Core) error {
	s := &c.state[f]
	dev := c.devices[f]
	switch s.op {
	case OpIn:
		return c.transferIn(dev, s, mem)
	case OpOut:
		return c.transferOut(dev, s, mem)
	case OpIoc:
		return c.transferIoc(dev, s)
	default:
		return fmt.Errorf("ioc: device %d has no staged operation", f)
	}
}

func (c *Coprocessor) blockOffset(dev *device.Device, s *inFlight) int {
	switch dev.Mode {
	case device.ModeFixed:
		if dev.Kind == device.KindDisk {
			return s.x.Int() * dev.BlockWords
		}
		return dev.Pos * dev.BlockWords
	default:
		return -1
	}
}

func (c *Coprocessor) transferIn(dev *device.Device, s *inFlight, mem *core.Core) error {
	var buf []word.Word
	if dev.Format == device.FormatChar || dev.Format == device.FormatCard {
		str, err := dev.ReadText(-1, dev.BlockWords*5)
		if err != nil {
			return err
		}
		buf = device.DecodeChars(str)
		for len(buf) < dev.BlockWords {
			buf = append(buf, word.New(0))
		}
	} else {
		buf = make([]word.Word, dev.BlockWords)
		off := c.blockOffset(dev, s)
		if err := dev.ReadBlock(buf, off, dev.BlockWords); err != nil {
			return err
		}
	}
	for i := 0; i < dev.BlockWords; i++ {
		addr := s.m + i
		if err := core.CheckAddress(addr); err != nil {
			return err
		}
		mem.Memory[addr] = buf[i]
	}
	if dev.Mode == device.ModeFixed && dev.Kind == device.KindTape {
		dev.Pos++
	}
	return nil
}

func (c *Coprocessor) transferOut(dev *device.Device, s *inFlight, mem *core.Core) error {
	buf := make([]word.Word, dev.BlockWords)
	for i := 0; i < dev.BlockWords; i++ {
		addr := s.m + i
		if err := core.CheckAddress(addr); err != nil {
			return err
		}
		buf[i] = mem.Memory[addr]
	}
	if dev.Format == device.FormatChar || dev.Format == device.FormatCard {
		str, err := device.EncodeChars(buf)
		if err != nil {
			return fmt.Errorf("ioc: device %d: %w", dev.Index, err)
		}
		return dev.WriteText(-1, str)
	}
	off := c.blockOffset(dev, s)
	if err := dev.WriteBlock(buf, off, dev.BlockWords); err != nil {
		return err
	}
	if dev.Mode == device.ModeFixed && dev.Kind == device.KindTape {
		dev.Pos++
	}
	return nil
}

func (c *Coprocessor) transferIoc(dev *device.Device, s *inFlight) error {
	switch dev.Kind {
	case device.KindTape:
		if s.m == 0 {
			dev.Pos = 0
		} else {
			dev.Pos += s.m
		}
	case device.KindDisk:
		dev.Pos = s.x.Int()
	case device.KindLinePrinter:
		return dev.WriteFormFeed()
	case device.KindPaperTape:
		dev.Pos = 0
	}
	return nil
}
