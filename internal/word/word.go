// Package word implements the MIX word: five unsigned 6-bit bytes plus a
// sign, with the field (L:R) algebra and signed-magnitude arithmetic that
// TAOCP Vol. 1 §1.3 describes.
package word

import "fmt"

// Sign is the sign of a Word. The zero value is Pos, so a zero-valued Word
// is +0.
type Sign bool

const (
	Pos Sign = false
	Neg Sign = true
)

func (s Sign) String() string {
	if s == Neg {
		return "-"
	}
	return "+"
}

// Comparison is the result of comparing two fields.
type Comparison int

const (
	Less Comparison = iota
	Equal
	Greater
)

const (
	// ByteMax is the largest value a single MIX byte can hold.
	ByteMax = 0o77
	// WordMax is the largest magnitude a 30-bit Word can hold.
	WordMax = 0o7777777777 // 2^30 - 1
	// AddrMax is the highest valid memory address.
	AddrMax = 3999
)

// Word is a MIX word: a sign and five 6-bit bytes, numbered 1 (most
// significant) through 5, plus a sticky overflow tag that is not part of
// the value's identity (two words with differing overflow bits but equal
// sign/bytes are the same word).
type Word struct {
	sign     Sign
	b        [5]byte
	overflow bool
}

// New builds a Word from a native signed integer. Values whose magnitude
// exceeds 2^30-1 are truncated to their low 30 bits and the overflow tag is
// set. The native zero always becomes +0.
func New(n int) Word {
	neg := n < 0
	aw := n
	if neg {
		aw = -aw
	}
	w := Word{
		sign: Sign(neg),
		b: [5]byte{
			byte((aw >> 24) & ByteMax),
			byte((aw >> 18) & ByteMax),
			byte((aw >> 12) & ByteMax),
			byte((aw >> 6) & ByteMax),
			byte(aw & ByteMax),
		},
	}
	w.overflow = (aw >> 30) > 0
	return w
}

// NewFromBytes builds a Word from an explicit sign and five bytes. Bytes
// are masked to 6 bits; any byte carrying bits above position 6 sets the
// overflow tag.
func NewFromBytes(sign Sign, b [5]byte) Word {
	w := Word{sign: sign}
	for i, v := range b {
		if v > ByteMax {
			w.overflow = true
		}
		w.b[i] = v & ByteMax
	}
	return w
}

// Sign returns the word's sign.
func (w Word) Sign() Sign { return w.sign }

// Byte returns byte i (1-indexed, 1..5) of the word.
func (w Word) Byte(i int) byte {
	if i < 1 || i > 5 {
		panic(fmt.Sprintf("word: byte index out of range: %d", i))
	}
	return w.b[i-1]
}

// Bytes returns the five bytes 1..5 as an array.
func (w Word) Bytes() [5]byte { return w.b }

// Overflow reports the sticky overflow tag.
func (w Word) Overflow() bool { return w.overflow }

// WithoutOverflow returns a copy of w with the overflow tag cleared.
func (w Word) WithoutOverflow() Word {
	w.overflow = false
	return w
}

// IndexOverflow reports whether w is invalid as the contents of an index
// register: any of bytes 1..3 nonzero, or the sticky overflow tag set.
func (w Word) IndexOverflow() bool {
	return w.overflow || w.b[0] != 0 || w.b[1] != 0 || w.b[2] != 0
}

// Magnitude returns the unsigned integer magnitude of w, ignoring sign.
func (w Word) Magnitude() int {
	m := int(w.b[0])
	m = (m << 6) | int(w.b[1])
	m = (m << 6) | int(w.b[2])
	m = (m << 6) | int(w.b[3])
	m = (m << 6) | int(w.b[4])
	return m
}

// IsZero reports whether w's magnitude is zero (true for both +0 and -0).
func (w Word) IsZero() bool { return w.Magnitude() == 0 }

// Int converts w to a native signed integer. -0 converts to native 0.
func (w Word) Int() int {
	m := w.Magnitude()
	if w.sign == Neg {
		return -m
	}
	return m
}

// Equal reports whether w and o have the same sign and bytes (the raw,
// memory-image notion of equality in which +0 and -0 differ). The overflow
// tag is not part of equality.
func (w Word) Equal(o Word) bool {
	return w.sign == o.sign && w.b == o.b
}

// Compare reports the arithmetic ordering of w and o, where +0 and -0
// compare equal.
func (w Word) Compare(o Word) Comparison {
	a, b := w.Int(), o.Int()
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// Neg returns a copy of w with only the sign flipped; magnitude (including
// zero) is untouched, so negating +0 yields -0.
func (w Word) Neg() Word {
	w.sign = !w.sign
	return w
}

// Add performs MIX's signed addition: ordinary integer addition, with the
// 30-bit sticky overflow bit set on truncation, and with the left
// operand's sign preserved when the arithmetic result is zero (so
// (+3)+(-3) is +0, and (-3)+(+3) is -0).
func (w Word) Add(o Word) Word {
	sum := New(w.Int() + o.Int())
	if sum.IsZero() {
		sum.sign = w.sign
	}
	return sum
}

// Field extracts the field (L:R) of w, right-justified into a freshly
// signed word (sign is + unless L=0, in which case the sign is w's sign).
// This is the "load" justification used by LD*/LD*N and CMP*.
func (w Word) Field(l, r int) Word {
	return withField(Word{}, w, l, r, false, true)
}

// WithField stores the field (L:R) of src into w, left-justified at
// positions L..R, preserving w's other bytes. The sign is overwritten only
// when L=0. This is the "store" justification used by ST* and the
// assembler's W-value accumulation.
func (w Word) WithField(src Word, l, r int) Word {
	return withField(w, src, l, r, true, false)
}

// withField implements both Field and WithField, matching the asymmetric
// shift_left/shift_right behavior TAOCP describes: shiftLeft packs src's
// right-justified subfield starting at dest position L; shiftRight (used
// for loads) right-justifies src's L..R bytes into the result.
func withField(dest, src Word, l, r int, shiftLeft, shiftRight bool) Word {
	if l < 0 || r < 0 || l > 5 || r > 5 || l > r {
		panic(fmt.Sprintf("word: bad field (%d:%d)", l, r))
	}
	sign := dest.sign
	if l == 0 {
		sign = src.sign
		l = 1
	}
	b := dest.b
	for i := l; i <= r; i++ {
		switch {
		case shiftLeft:
			b[i-1] = src.b[(5-r+i)-1]
		case shiftRight:
			b[(5-r+i)-1] = src.b[i-1]
		default:
			b[i-1] = src.b[i-1]
		}
	}
	out := Word{sign: sign, b: b}
	out.overflow = src.overflow || dest.overflow
	return out
}

// String renders w in "book print format": "± b1 b2 b3 b4 b5", bytes
// zero-padded to two decimal digits.
func (w Word) String() string {
	return fmt.Sprintf("%s %02d %02d %02d %02d %02d",
		w.sign, w.b[0], w.b[1], w.b[2], w.b[3], w.b[4])
}

// Mul computes the 60-bit signed product of a and b, splitting it into a
// high word (hi, sign = sign of the mathematical product) and a low word
// (lo, sign mirrored), matching MUL's A:X result.
func Mul(a, b Word) (hi, lo Word) {
	prod := int64(a.Int()) * int64(b.Int())
	neg := prod < 0
	ax := prod
	if neg {
		ax = -ax
	}
	hiVal := int(ax >> 30)
	loVal := int(ax & WordMax)
	if neg {
		return New(hiVal).Neg(), New(loVal).Neg()
	}
	return New(hiVal), New(loVal)
}

// Div computes the signed quotient and remainder of the 60-bit dividend
// formed by (a high, x low magnitude) divided by d, matching DIV. If d is
// zero or the quotient would not fit in 30 bits, overflow is reported and
// quot/rem are unspecified (callers should leave A/X unchanged in that
// case, per spec).
func Div(a, x, d Word) (quot, rem Word, overflow bool) {
	if d.IsZero() {
		return Word{}, Word{}, true
	}
	aNeg := a.sign == Neg
	ax := int64(a.Magnitude())
	ax = (ax << 30) | int64(x.Magnitude())
	dNeg := d.sign == Neg
	v := int64(d.Magnitude())
	q := ax / v
	r := ax % v
	overflow = q > WordMax
	qSign := Sign(aNeg != dNeg)
	quot = signedMag(qSign, int(q&WordMax))
	rem = signedMag(Sign(aNeg), int(r&WordMax))
	return quot, rem, overflow
}

func signedMag(s Sign, mag int) Word {
	if s == Neg {
		return New(-mag)
	}
	return New(mag)
}
