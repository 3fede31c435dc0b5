// Package charset holds the fixed 56-entry printable character table MIX
// character devices and the assembler's ALF pseudo-op translate through.
package charset

import "fmt"

// table is the MIX byte-to-character mapping, codes 0..55. Codes 56..63
// have no printable representation and are invalid on output.
var table = [56]rune{
	' ', 'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I',
	'^', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R',
	'&', '#', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z',
	'0', '1', '2', '3', '4', '5', '6', '7', '8', '9',
	'.', ',', '(', ')', '+', '-', '*', '/', '=', '$',
	'<', '>', '@', ';', ':', '\'',
}

var reverse map[rune]byte

func init() {
	reverse = make(map[rune]byte, len(table))
	for i, r := range table {
		reverse[r] = byte(i)
	}
}

// MaxCode is the highest valid character code (inclusive).
const MaxCode = 55

// ToChar translates a MIX byte (0..55) to its printable character. It
// returns an error for codes 56..63, which have no representation.
func ToChar(b byte) (rune, error) {
	if b > MaxCode {
		return 0, fmt.Errorf("charset: code %d has no printable character", b)
	}
	return table[b], nil
}

// ToByte translates a printable character back to its MIX byte code. The
// ok result is false for characters outside the table (including
// lowercase letters, which MIX has no representation for).
func ToByte(r rune) (byte, bool) {
	b, ok := reverse[r]
	return b, ok
}

// MustToChar is ToChar for callers that have already validated the byte,
// such as a device transfer loop that checked bounds up front.
func MustToChar(b byte) rune {
	r, err := ToChar(b)
	if err != nil {
		panic(err)
	}
	return r
}
