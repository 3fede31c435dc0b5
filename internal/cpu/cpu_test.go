package cpu

import (
	"path/filepath"
	"testing"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/device"
	"github.com/mixvm/mix/internal/ioc"
	"github.com/mixvm/mix/internal/word"
)

func newTestCPU(t *testing.T) *CPU {
	t.Helper()
	c := core.New()
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
	io := ioc.New(devs)
	return New(c, io)
}

func instrWord(aSign word.Sign, aa int, i, f, c int) word.Word {
	b := [5]byte{
		byte((aa >> 6) & word.ByteMax),
		byte(aa & word.ByteMax),
		byte(i),
		byte(f),
		byte(c),
	}
	return word.NewFromBytes(aSign, b)
}

func TestAdd(t *testing.T) {
	p := newTestCPU(t)
	p.Core.Memory[100] = word.New(7)
	p.Core.A = word.New(3)
	p.Core.Memory[0] = instrWord(word.Pos, 100, 0, 5, 1) // ADD 100 (0:5)

	code, err := p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: code=%v err=%v", code, err)
	}
	if p.Core.A.Int() != 10 {
		t.Errorf("A = %d, want 10", p.Core.A.Int())
	}
}

func TestAddSubPartialField(t *testing.T) {
	p := newTestCPU(t)
	p.Core.Memory[100] = word.NewFromBytes(word.Neg, [5]byte{1, 2, 3, 4, 5})
	p.Core.A = word.New(0)
	p.Core.Memory[0] = instrWord(word.Pos, 100, 0, 1*8+3, 1) // ADD 100(1:3)

	code, err := p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: code=%v err=%v", code, err)
	}
	want := 1*64*64 + 2*64 + 3 // bytes 1,2,3 of Memory[100], sign ignored since L!=0
	if p.Core.A.Int() != want {
		t.Errorf("A = %d, want %d (field (1:3) must ignore the other two bytes and the sign)", p.Core.A.Int(), want)
	}

	p.PC = 0
	p.Core.A = word.New(want)
	p.Core.Memory[0] = instrWord(word.Pos, 100, 0, 1*8+3, 2) // SUB 100(1:3)
	code, err = p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: code=%v err=%v", code, err)
	}
	if p.Core.A.Int() != 0 {
		t.Errorf("A after SUB = %d, want 0", p.Core.A.Int())
	}
}

func TestHalt(t *testing.T) {
	p := newTestCPU(t)
	p.Core.Memory[0] = instrWord(word.Pos, 0, 0, 2, 5) // HLT

	code, err := p.Tick(p.NextTS())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != TickHalt {
		t.Errorf("code = %v, want TickHalt", code)
	}
}

func TestInvalidIndexHalts(t *testing.T) {
	p := newTestCPU(t)
	p.Core.Memory[0] = instrWord(word.Pos, 0, 7, 5, 1) // I=7 invalid

	code, err := p.Tick(p.NextTS())
	if code != TickErr || err == nil {
		t.Errorf("expected TickErr, got code=%v err=%v", code, err)
	}
}

func TestEntAdvancesPC(t *testing.T) {
	p := newTestCPU(t)
	p.Core.Memory[0] = instrWord(word.Pos, 42, 0, 2, 48) // ENTA 42

	code, err := p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: %v %v", code, err)
	}
	if p.Core.A.Int() != 42 {
		t.Errorf("A = %d, want 42", p.Core.A.Int())
	}
	if p.PC != 1 {
		t.Errorf("PC = %d, want 1", p.PC)
	}
}

func TestStoreFieldAsymmetry(t *testing.T) {
	p := newTestCPU(t)
	p.Core.A = word.New(-123)
	p.Core.Memory[200] = word.NewFromBytes(word.Pos, [5]byte{9, 8, 7, 6, 5})
	p.Core.Memory[0] = instrWord(word.Pos, 200, 0, 5, 24) // STA 200(0:5), full word incl. sign

	code, err := p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: %v %v", code, err)
	}
	if p.Core.Memory[200].Int() != -123 {
		t.Errorf("Memory[200] = %d, want -123", p.Core.Memory[200].Int())
	}
}

func TestIndexOverflowHalts(t *testing.T) {
	p := newTestCPU(t)
	*p.Core.Index(1) = word.New(1 << 20)
	p.Core.Memory[0] = instrWord(word.Pos, 0, 0, 2, 48) // ENTA 0 (harmless op, overflow pre-set on I1)

	code, err := p.Tick(p.NextTS())
	if code != TickErr || err == nil {
		t.Errorf("expected TickErr from I1 overflow, got code=%v err=%v", code, err)
	}
}

func TestCompare(t *testing.T) {
	p := newTestCPU(t)
	p.Core.A = word.New(5)
	p.Core.Memory[300] = word.New(9)
	p.Core.Memory[0] = instrWord(word.Pos, 300, 0, 8+5, 56) // CMPA 300(1:5)

	code, err := p.Tick(p.NextTS())
	if err != nil || code != TickContinue {
		t.Fatalf("tick: %v %v", code, err)
	}
	if p.Core.Comparison != word.Less {
		t.Errorf("Comparison = %v, want Less", p.Core.Comparison)
	}
}
