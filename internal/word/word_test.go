package word

import "testing"

func TestNewRoundTrip(t *testing.T) {
	cases := []int{0, 1, -1, 1000000, -1000000, WordMax, -WordMax}
	for _, n := range cases {
		w := New(n)
		if got := w.Int(); got != n {
			t.Errorf("New(%d).Int() = %d, want %d", n, got, n)
		}
		if w.Overflow() {
			t.Errorf("New(%d) unexpectedly overflowed", n)
		}
	}
}

func TestNewOverflow(t *testing.T) {
	w := New(WordMax + 1)
	if !w.Overflow() {
		t.Errorf("New(WordMax+1) should set overflow")
	}
}

func TestNegZero(t *testing.T) {
	z := New(0)
	if z.Sign() != Pos {
		t.Errorf("New(0) sign = %v, want Pos", z.Sign())
	}
	nz := z.Neg()
	if nz.Sign() != Neg {
		t.Errorf("Neg(+0) sign = %v, want Neg", nz.Sign())
	}
	if nz.Int() != 0 {
		t.Errorf("Neg(+0).Int() = %d, want 0", nz.Int())
	}
	if z.Equal(nz) {
		t.Errorf("+0 and -0 should not be Equal (raw identity)")
	}
	if z.Compare(nz) != Equal {
		t.Errorf("+0 and -0 should Compare Equal")
	}
}

func TestAddSignRules(t *testing.T) {
	three := New(3)
	negThree := New(-3)
	sum := three.Add(negThree)
	if sum.Int() != 0 {
		t.Fatalf("3 + -3 = %d, want 0", sum.Int())
	}

	negThreeThenThree := negThree.Add(three)
	if negThreeThenThree.Sign() != Neg || !negThreeThenThree.IsZero() {
		t.Errorf("(-3) + 3 = %v, want -0", negThreeThenThree)
	}
}

func TestFieldLoad(t *testing.T) {
	w := NewFromBytes(Neg, [5]byte{1, 16, 3, 5, 4})
	f := w.Field(0, 0)
	if f.Sign() != Neg || !f.IsZero() {
		t.Errorf("Field(0,0) = %v, want -0", f)
	}

	f = w.Field(1, 5)
	if !f.Equal(NewFromBytes(Pos, w.Bytes())) {
		t.Errorf("Field(1,5) = %v, want original bytes with + sign", f)
	}

	f = w.Field(4, 4)
	if f.Sign() != Pos || f.Byte(5) != 5 {
		t.Errorf("Field(4,4) = %v, want +00 00 00 00 05", f)
	}

	f = w.Field(0, 3)
	if f.Sign() != Neg || f.Byte(3) != 1 || f.Byte(4) != 16 || f.Byte(5) != 3 {
		t.Errorf("Field(0,3) = %v", f)
	}
}

func TestWithFieldStore(t *testing.T) {
	dest := NewFromBytes(Pos, [5]byte{9, 8, 7, 6, 5})
	src := New(-123)

	out := dest.WithField(src, 4, 5)
	if out.Sign() != Pos {
		t.Errorf("WithField(4,5) changed sign: %v", out)
	}
	if out.Byte(1) != 9 || out.Byte(2) != 8 || out.Byte(3) != 7 {
		t.Errorf("WithField(4,5) clobbered untouched bytes: %v", out)
	}

	out = dest.WithField(src, 0, 5)
	if out.Sign() != Neg {
		t.Errorf("WithField(0,5) should take src sign, got %v", out)
	}
}

func TestFieldRoundTrip(t *testing.T) {
	orig := New(12345)
	var acc Word
	for f := 1; f <= 5; f++ {
		acc = acc.WithField(orig.Field(f, f), f, f)
	}
	if !acc.Equal(orig.WithoutOverflow()) {
		t.Errorf("byte-by-byte round trip = %v, want %v", acc, orig)
	}
}

func TestMul(t *testing.T) {
	hi, lo := Mul(New(-2), New(3))
	if hi.Int() != 0 || lo.Int() != -6 {
		t.Errorf("Mul(-2,3) = (%v,%v), want (0,-6)", hi, lo)
	}
	if hi.Sign() != Neg {
		t.Errorf("Mul(-2,3) hi sign = %v, want Neg (product sign)", hi.Sign())
	}
}

func TestDiv(t *testing.T) {
	a := New(0)
	x := New(17)
	q, r, overflow := Div(a, x, New(5))
	if overflow {
		t.Fatalf("unexpected overflow")
	}
	if q.Int() != 3 || r.Int() != 2 {
		t.Errorf("Div(0:17 / 5) = (%d,%d), want (3,2)", q.Int(), r.Int())
	}
}

func TestDivByZero(t *testing.T) {
	_, _, overflow := Div(New(0), New(1), New(0))
	if !overflow {
		t.Errorf("Div by zero should overflow")
	}
}

func TestIndexOverflow(t *testing.T) {
	ok := New(100)
	if ok.IndexOverflow() {
		t.Errorf("New(100) should fit an index register")
	}
	tooBig := New(1 << 20)
	if !tooBig.IndexOverflow() {
		t.Errorf("New(1<<20) should overflow an index register")
	}
}

func TestString(t *testing.T) {
	w := NewFromBytes(Pos, [5]byte{0, 0, 0, 0, 1})
	if got, want := w.String(), "+ 00 00 00 00 01"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
