// Package listing implements the textual load/dump format shared by the
// assembler's emitted program listing and the machine's core dump: one
// line per register or memory word, in "book print format".
package listing

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mixvm/mix/internal/core"
	"github.com/mixvm/mix/internal/word"
)

// Line is one entry of a listing: either a named register or a memory
// word at an address.
type Line struct {
	Label string // "A", "X", "I1".."I6", "J", or "" for a memory line
	Addr  int    // valid only when Label == ""
	Word  word.Word
}

// Format renders one line in "LABEL: ± b1 b2 b3 b4 b5" or
// "NNNN: ± b1 b2 b3 b4 b5" form.
func Format(l Line) string {
	if l.Label != "" {
		return fmt.Sprintf("%s: %s", l.Label, l.Word)
	}
	return fmt.Sprintf("%04d: %s", l.Addr, l.Word)
}

// Parse reads one listing line back into a Line. Malformed lines return
// an error; callers that load a listing are expected to skip these.
func Parse(s string) (Line, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Line{}, fmt.Errorf("listing: missing ':' in %q", s)
	}
	label := strings.TrimSpace(parts[0])
	w, err := parseWord(strings.TrimSpace(parts[1]))
	if err != nil {
		return Line{}, err
	}
	if n, err := strconv.Atoi(label); err == nil {
		return Line{Addr: n, Word: w}, nil
	}
	switch label {
	case "A", "X", "J", "I1", "I2", "I3", "I4", "I5", "I6":
		return Line{Label: label, Word: w}, nil
	default:
		return Line{}, fmt.Errorf("listing: unrecognized label %q", label)
	}
}

func parseWord(s string) (word.Word, error) {
	fields := strings.Fields(s)
	if len(fields) != 6 {
		return word.Word{}, fmt.Errorf("listing: expected sign + 5 bytes, got %q", s)
	}
	var sign word.Sign
	switch fields[0] {
	case "+":
		sign = word.Pos
	case "-":
		sign = word.Neg
	default:
		return word.Word{}, fmt.Errorf("listing: bad sign %q", fields[0])
	}
	var b [5]byte
	for i := 0; i < 5; i++ {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil || n < 0 || n > word.ByteMax {
			return word.Word{}, fmt.Errorf("listing: bad byte %q", fields[i+1])
		}
		b[i] = byte(n)
	}
	return word.NewFromBytes(sign, b), nil
}

// Write emits lines, one per line, in the order given.
func Write(w io.Writer, lines []Line) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintln(bw, Format(l)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DumpCore renders a full machine state as a listing: registers first,
// then every memory word in address order.
func DumpCore(w io.Writer, c *core.Core) error {
	var lines []Line
	lines = append(lines,
		Line{Label: "A", Word: c.A},
		Line{Label: "X", Word: c.X},
	)
	for n := 1; n <= 6; n++ {
		lines = append(lines, Line{Label: fmt.Sprintf("I%d", n), Word: *c.Index(n)})
	}
	lines = append(lines, Line{Label: "J", Word: c.J})
	for addr := 0; addr < core.MemSize; addr++ {
		lines = append(lines, Line{Addr: addr, Word: c.Memory[addr]})
	}
	return Write(w, lines)
}

// LoadInto reads a listing from r and applies every well-formed line to
// c, skipping malformed or out-of-range ones.
func LoadInto(r io.Reader, c *core.Core) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		l, err := Parse(line)
		if err != nil {
			continue
		}
		if l.Label != "" {
			switch l.Label {
			case "A":
				c.A = l.Word
			case "X":
				c.X = l.Word
			case "J":
				c.J = l.Word
			default:
				n, _ := strconv.Atoi(l.Label[1:])
				*c.Index(n) = l.Word
			}
			continue
		}
		if err := core.CheckAddress(l.Addr); err != nil {
			continue
		}
		c.Memory[l.Addr] = l.Word
	}
	return sc.Err()
}

// ReadAll parses every well-formed line from r, skipping malformed ones,
// in file order. Unlike LoadInto it does not require a core to apply
// lines against; it is for tools that just want to inspect a listing.
func ReadAll(r io.Reader) ([]Line, error) {
	var lines []Line
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		l, err := Parse(s)
		if err != nil {
			continue
		}
		lines = append(lines, l)
	}
	return lines, sc.Err()
}

// Program renders an assembler's sparse address->word map as a sorted
// memory-only listing, consumable by LoadInto.
func Program(words map[int]word.Word) []Line {
	addrs := make([]int, 0, len(words))
	for a := range words {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	lines := make([]Line, 0, len(addrs))
	for _, a := range addrs {
		lines = append(lines, Line{Addr: a, Word: words[a]})
	}
	return lines
}
