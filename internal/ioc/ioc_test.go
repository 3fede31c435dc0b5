package ioc

import (
	"path/filepath"
	"testing"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/device"
	"github.com/mixvm/mix/internal/word"
)

func newTestCoprocessor(t *testing.T) (*Coprocessor, *core.Core) {
	t.Helper()
	dir := t.TempDir()
	specs := device.StandardSpecs()
	var devs [device.NumDevices]*device.Device
	for i, spec := range specs {
		d, err := device.Open(spec, filepath.Join(dir, spec.Kind.String()))
		if err != nil {
			t.Fatalf("Open device %d: %v", i, err)
		}
		devs[i] = d
	}
	return New(devs), core.New()
}

func TestStageAndTransferDisk(t *testing.T) {
	c, mem := newTestCoprocessor(t)
	for i := 0; i < 4; i++ {
		mem.Memory[100+i] = word.New(i + 1)
	}

	// Block 1, away from the head at block 0, so the seek-optimized
	// latencies do not apply and the device runs on its full timings.
	if err := c.Stage(OpOut, 8, 100, word.New(1), 0); err != nil {
		t.Fatalf("Stage OUT: %v", err)
	}
	dev := c.devices[8]
	if err := c.Tick(0+dev.TimeToDoIO, mem); err != nil {
		t.Fatalf("Tick do_io: %v", err)
	}
	if err := c.Tick(0+dev.TimeToFinish, mem); err != nil {
		t.Fatalf("Tick finish: %v", err)
	}
	if c.Busy(8) {
		t.Errorf("device 8 should be idle after finish tick")
	}

	for i := range mem.Memory {
		mem.Memory[i] = word.Word{}
	}
	if err := c.Stage(OpIn, 8, 200, word.New(1), dev.TimeToFinish); err != nil {
		t.Fatalf("Stage IN: %v", err)
	}
	now := dev.TimeToFinish + dev.TimeToDoIO
	if err := c.Tick(now, mem); err != nil {
		t.Fatalf("Tick IN do_io: %v", err)
	}
	for i := 0; i < 4; i++ {
		if got := mem.Memory[200+i].Int(); got != i+1 {
			t.Errorf("memory[%d] = %d, want %d", 200+i, got, i+1)
		}
	}
}

func TestBusyRejectsRestage(t *testing.T) {
	c, _ := newTestCoprocessor(t)
	if err := c.Stage(OpOut, 0, 0, word.New(0), 0); err != nil {
		t.Fatalf("first Stage: %v", err)
	}
	if err := c.Stage(OpOut, 0, 0, word.New(0), 1); err == nil {
		t.Errorf("staging a busy device should fail")
	}
}

func TestDiskSeekOptimization(t *testing.T) {
	c, _ := newTestCoprocessor(t)
	dev := c.devices[8]
	dev.Pos = 5

	if err := c.Stage(OpOut, 8, 0, word.New(5), 0); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	s := c.state[8]
	if s.finishTS != dev.TimeToFinish/DiskSeekFactor {
		t.Errorf("finish_ts = %d, want seek-optimized %d", s.finishTS, dev.TimeToFinish/DiskSeekFactor)
	}
}

func TestIocTapeRewind(t *testing.T) {
	c, mem := newTestCoprocessor(t)
	dev := c.devices[0]
	dev.Pos = 7

	if err := c.Stage(OpIoc, 0, 0, word.New(0), 0); err != nil {
		t.Fatalf("Stage IOC: %v", err)
	}
	if err := c.Tick(dev.TimeToDoIO, mem); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if dev.Pos != 0 {
		t.Errorf("tape IOC with M=0 should rewind, got Pos=%d", dev.Pos)
	}
}

func TestCharDeviceTranslatesThroughCharset(t *testing.T) {
	c, mem := newTestCoprocessor(t)
	dev := c.devices[19] // terminal, FormatChar
	if dev.Format != device.FormatChar {
		t.Fatalf("device 19 should be FormatChar")
	}

	mem.Memory[0] = word.NewFromBytes(word.Pos, [5]byte{1, 2, 3, 4, 5}) // "ABCDE"

	if err := c.Stage(OpOut, 19, 0, word.New(0), 0); err != nil {
		t.Fatalf("Stage OUT: %v", err)
	}
	if err := c.Tick(dev.TimeToDoIO, mem); err != nil {
		t.Fatalf("Tick OUT do_io: %v", err)
	}

	// Let the OUT finish so the device is free again, then read the value
	// back through IN. Reads and writes share the backing file's single
	// offset, which the OUT left at end of file, so seek back to the start
	// first.
	if err := c.Tick(dev.TimeToFinish, mem); err != nil {
		t.Fatalf("Tick OUT finish: %v", err)
	}
	for i := range mem.Memory {
		mem.Memory[i] = word.Word{}
	}
	if _, err := dev.ReadText(0, 0); err != nil {
		t.Fatalf("rewind: %v", err)
	}
	if err := c.Stage(OpIn, 19, 100, word.New(0), dev.TimeToFinish); err != nil {
		t.Fatalf("Stage IN: %v", err)
	}
	now := dev.TimeToFinish + dev.TimeToDoIO
	if err := c.Tick(now, mem); err != nil {
		t.Fatalf("Tick IN do_io: %v", err)
	}
	if got := mem.Memory[100]; got.Byte(1) != 1 || got.Byte(2) != 2 || got.Byte(3) != 3 || got.Byte(4) != 4 || got.Byte(5) != 5 {
		t.Errorf("memory[100] = %v, want bytes 1 2 3 4 5 (A B C D E)", got)
	}

	raw, err := dev.ReadText(0, 5)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if raw != "ABCDE" {
		t.Errorf("backing file holds %q, want printable text %q", raw, "ABCDE")
	}
}

func TestCharDeviceRejectsUnprintableCode(t *testing.T) {
	c, mem := newTestCoprocessor(t)
	dev := c.devices[18] // line printer, FormatChar
	mem.Memory[0] = word.NewFromBytes(word.Pos, [5]byte{60, 0, 0, 0, 0}) // code 60 has no character

	if err := c.Stage(OpOut, 18, 0, word.New(0), 0); err != nil {
		t.Fatalf("Stage OUT: %v", err)
	}
	if err := c.Tick(dev.TimeToDoIO, mem); err == nil {
		t.Errorf("writing an unprintable code to a character device should fail")
	}
}

func TestBusyAndFreeTSOutOfRange(t *testing.T) {
	c, _ := newTestCoprocessor(t)
	if c.Busy(21) {
		t.Errorf("device 21 is out of range, should never be busy")
	}
	if c.Busy(-1) {
		t.Errorf("device -1 is out of range, should never be busy")
	}
	if got := c.FreeTS(21); got != -1 {
		t.Errorf("FreeTS(21) = %d, want -1", got)
	}
	if got := c.FreeTS(30); got != -1 {
		t.Errorf("FreeTS(30) = %d, want -1", got)
	}
}

func TestNextTS(t *testing.T) {
	c, _ := newTestCoprocessor(t)
	if c.NextTS(0) != -1 {
		t.Errorf("NextTS with nothing scheduled should be -1")
	}
	if err := c.Stage(OpOut, 19, 0, word.New(0), 5); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	dev := c.devices[19]
	want := 5 + dev.TimeToDoIO
	if got := c.NextTS(0); got != want {
		t.Errorf("NextTS = %d, want %d", got, want)
	}
}
