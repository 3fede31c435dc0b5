// Package asm implements the MIXAL assembler: a single pass over source
// lines that resolves forward references through a side table of patch
// sites rather than threading a linked list through the A-field of the
// instructions themselves.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mixvm/mix/internal/charset"
	"github.com/mixvm/mix/internal/listing"
	"github.com/mixvm/mix/internal/word"
)

// patchSite is one instruction address whose A-field still awaits a
// symbol's value.
type patchSite struct {
	Addr int
}

// literalEntry is a `=expr=` literal constant awaiting deposition in the
// END trailer, keyed by the hidden symbol that stands in for it.
type literalEntry struct {
	symbol string
	value  int
}

// Assembler holds all per-program mutable state: symbol tables, the
// location counter, and the literal pool. Call AssembleAll once, then
// Emit.
type Assembler struct {
	globals map[string]int
	locals  map[int]int

	unresolvedGlobal      map[string][]patchSite
	unresolvedLocalFuture map[int][]patchSite

	words map[int]word.Word
	star  int
	ended bool
	entry int

	literalSeq int
	literals   []literalEntry

	log *logrus.Entry
}

// New returns an empty Assembler ready to assemble a program.
func New() *Assembler {
	return &Assembler{
		globals:               map[string]int{},
		locals:                map[int]int{},
		unresolvedGlobal:      map[string][]patchSite{},
		unresolvedLocalFuture: map[int][]patchSite{},
		words:                 map[int]word.Word{},
		log:                   logrus.WithField("component", "asm"),
	}
}

// Entry returns the program's entry point, the W-value of its END line.
func (a *Assembler) Entry() int { return a.entry }

// AssembleAll reads every line from r and assembles it. An END line is
// required; its absence is an error.
func (a *Assembler) AssembleAll(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := a.assembleLine(sc.Text()); err != nil {
			return fmt.Errorf("asm: line %d: %w", lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !a.ended {
		return fmt.Errorf("asm: source ended without an END line")
	}
	return nil
}

// Emit writes the assembled program as a sorted textual listing.
func (a *Assembler) Emit(w io.Writer) error {
	return listing.Write(w, listing.Program(a.words))
}

const allowedChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ */+-:=(),"

func validateChars(s string) error {
	for _, c := range s {
		if !strings.ContainsRune(allowedChars, c) {
			return fmt.Errorf("asm: invalid character %q", c)
		}
	}
	return nil
}

func (a *Assembler) assembleLine(s string) error {
	if s == "" || s[0] == '*' {
		return nil
	}
	if err := validateChars(s); err != nil {
		return err
	}
	if a.ended {
		return fmt.Errorf("asm: instruction after END")
	}

	i := 0
	for i < len(s) && s[i] != ' ' {
		i++
	}
	loc := s[:i]
	for i < len(s) && s[i] == ' ' {
		i++
	}
	opStart := i
	for i < len(s) && s[i] != ' ' {
		i++
	}
	if opStart == i {
		return fmt.Errorf("asm: line has no opcode: %q", s)
	}
	op := s[opStart:i]

	var addr string
	if op == "ALF" {
		if i < len(s) && s[i] == ' ' {
			i++
		}
		if i+5 > len(s) {
			return fmt.Errorf("asm: ALF address too short: %q", s)
		}
		addr = s[i : i+5]
	} else {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		addrStart := i
		for i < len(s) && s[i] != ' ' {
			i++
		}
		addr = s[addrStart:i]
	}

	if loc != "" {
		if err := validateSymbolChars(loc); err != nil {
			return err
		}
	}

	switch op {
	case "EQU":
		w, err := parseW(addr, a.star, a.lookup)
		if err != nil {
			return err
		}
		if loc == "" {
			return fmt.Errorf("asm: EQU requires a LOC label")
		}
		return a.defineSymbol(loc, w)
	case "ORIG":
		w, err := parseW(addr, a.star, a.lookup)
		if err != nil {
			return err
		}
		if loc != "" {
			if err := a.defineSymbol(loc, a.star); err != nil {
				return err
			}
		}
		a.star = w
		return nil
	case "CON":
		w, err := parseW(addr, a.star, a.lookup)
		if err != nil {
			return err
		}
		a.deposit(word.New(w))
		return a.defineLoc(loc)
	case "END":
		w, err := parseW(addr, a.star, a.lookup)
		if err != nil {
			return err
		}
		a.entry = w
		if err := a.defineLoc(loc); err != nil {
			return err
		}
		return a.finish()
	case "ALF":
		w, err := alfWord(addr)
		if err != nil {
			return err
		}
		a.deposit(w)
		return a.defineLoc(loc)
	default:
		return a.assembleInstruction(loc, op, addr)
	}
}

func validateSymbolChars(sym string) error {
	hasLetter := false
	for _, c := range sym {
		if isUpper(byte(c)) {
			hasLetter = true
			continue
		}
		if !isDigit(byte(c)) {
			return fmt.Errorf("asm: invalid character in symbol %q", sym)
		}
	}
	if !hasLetter {
		return fmt.Errorf("asm: symbol %q must contain at least one letter", sym)
	}
	return nil
}

func (a *Assembler) assembleInstruction(loc, op, addr string) error {
	oc, ok := opTable[op]
	if !ok {
		return fmt.Errorf("asm: unknown opcode %q", op)
	}
	aif, err := parseAIF(addr, a.star, a.lookup)
	if err != nil {
		return err
	}
	f := oc.f
	if aif.HasF {
		f = aif.F
	}
	future := aif.Future
	if aif.HasLiteral {
		sym := fmt.Sprintf("=L%d=", a.literalSeq)
		a.literalSeq++
		a.literals = append(a.literals, literalEntry{symbol: sym, value: aif.Literal})
		future = sym
	}

	site := a.star
	if future != "" {
		a.words[site] = buildWord(0, aif.I, f, oc.c)
		a.addFuture(future, site)
	} else {
		a.words[site] = buildWord(aif.A, aif.I, f, oc.c)
	}
	a.star++
	return a.defineLoc(loc)
}

// defineLoc defines loc (if non-empty) at the address of the word just
// deposited: the address it actually occupies, not the post-increment
// location counter.
func (a *Assembler) defineLoc(loc string) error {
	if loc == "" {
		return nil
	}
	return a.defineSymbol(loc, a.star-1)
}

func (a *Assembler) deposit(w word.Word) {
	a.words[a.star] = w
	a.star++
}

func alfWord(addr string) (word.Word, error) {
	if len(addr) != 5 {
		return word.Word{}, fmt.Errorf("asm: ALF needs exactly 5 characters, got %q", addr)
	}
	var b [5]byte
	for i := 0; i < 5; i++ {
		c, ok := charset.ToByte(rune(addr[i]))
		if !ok {
			return word.Word{}, fmt.Errorf("asm: unprintable character in ALF: %q", addr)
		}
		b[i] = c
	}
	return word.NewFromBytes(word.Pos, b), nil
}

// buildWord assembles an instruction word from its A/I/F/C parts, taking
// the sign and low two bytes from a and filling I, F, C directly.
func buildWord(a, i, f, c int) word.Word {
	aw := word.New(a)
	bs := aw.Bytes()
	return word.NewFromBytes(aw.Sign(), [5]byte{bs[3], bs[4], byte(i), byte(f), byte(c)})
}

// classifyLocal tells whether sym is a local symbol reference (nH/nB/nF)
// and, if so, which digit and which form it is. locContext distinguishes
// a LOC-field definition (only nH is valid) from an address reference
// (only nB/nF are valid).
type localForm int

const (
	notLocal localForm = iota
	localDefine
	localBack
	localFuture
)

func classifyLocal(sym string, locContext bool) (digit int, form localForm, err error) {
	if len(sym) != 2 || !isDigit(sym[0]) {
		return 0, notLocal, nil
	}
	digit = int(sym[0] - '0')
	switch sym[1] {
	case 'H':
		if !locContext {
			return 0, notLocal, fmt.Errorf("asm: local symbol %q (H) only valid as a LOC label", sym)
		}
		return digit, localDefine, nil
	case 'B':
		if locContext {
			return 0, notLocal, fmt.Errorf("asm: local symbol %q (B) only valid in an address", sym)
		}
		return digit, localBack, nil
	case 'F':
		if locContext {
			return 0, notLocal, fmt.Errorf("asm: local symbol %q (F) only valid in an address", sym)
		}
		return digit, localFuture, nil
	default:
		return 0, notLocal, nil
	}
}

// defineSymbol binds sym to val, resolving any instructions that
// referenced it as a future symbol.
func (a *Assembler) defineSymbol(sym string, val int) error {
	digit, form, err := classifyLocal(sym, true)
	if err != nil {
		return err
	}
	if form == localDefine {
		a.locals[digit] = val
		for _, site := range a.unresolvedLocalFuture[digit] {
			a.patch(site, val)
		}
		delete(a.unresolvedLocalFuture, digit)
		return nil
	}
	if _, defined := a.globals[sym]; defined {
		return fmt.Errorf("asm: symbol %q already defined", sym)
	}
	a.globals[sym] = val
	for _, site := range a.unresolvedGlobal[sym] {
		a.patch(site, val)
	}
	delete(a.unresolvedGlobal, sym)
	return nil
}

func (a *Assembler) patch(site patchSite, val int) {
	a.words[site.Addr] = a.words[site.Addr].WithField(word.New(val), 0, 2)
}

// addFuture records that the instruction at addr needs sym's value once
// it becomes known.
func (a *Assembler) addFuture(sym string, addr int) {
	digit, form, err := classifyLocal(sym, false)
	if err == nil && form == localFuture {
		a.unresolvedLocalFuture[digit] = append(a.unresolvedLocalFuture[digit], patchSite{Addr: addr})
		return
	}
	a.unresolvedGlobal[sym] = append(a.unresolvedGlobal[sym], patchSite{Addr: addr})
}

// lookup resolves a symbol to its value in address/expression context:
// a defined global or a past local (nB). The location counter atom '*'
// is handled by parseExpr, not here. A future local (nF) or an undefined
// global is reported as !ok.
func (a *Assembler) lookup(sym string) (int, bool) {
	digit, form, err := classifyLocal(sym, false)
	if err != nil {
		return 0, false
	}
	if form == localBack {
		val, ok := a.locals[digit]
		return val, ok
	}
	if form == localFuture {
		return 0, false
	}
	val, ok := a.globals[sym]
	return val, ok
}

// finish runs the END-time trailer: unresolved global chains become
// CON 0 words, literal constants are deposited with their real values,
// and any remaining local future references are an error.
func (a *Assembler) finish() error {
	pending := make([]string, 0, len(a.unresolvedGlobal))
	for sym := range a.unresolvedGlobal {
		if strings.HasPrefix(sym, "=") {
			continue // a literal's hidden symbol, deposited below
		}
		pending = append(pending, sym)
	}
	sort.Strings(pending)
	for _, sym := range pending {
		if err := a.defineSymbol(sym, a.star); err != nil {
			return err
		}
		a.deposit(word.New(0))
	}

	for _, lit := range a.literals {
		if err := a.defineSymbol(lit.symbol, a.star); err != nil {
			return err
		}
		a.deposit(word.New(lit.value))
	}

	if len(a.unresolvedLocalFuture) > 0 {
		digits := make([]int, 0, len(a.unresolvedLocalFuture))
		for d := range a.unresolvedLocalFuture {
			digits = append(digits, d)
		}
		sort.Ints(digits)
		return fmt.Errorf("asm: undefined future local symbol %dF at END", digits[0])
	}

	a.ended = true
	return nil
}
