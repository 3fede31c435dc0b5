package asm

import (
	"fmt"
	"strings"

	"github.com/mixvm/mix/internal/word"
)

// wordWithField stores v's field (l:r) into the word whose current
// integer value is dest, returning the result as an int. This is the
// W-value accumulation rule: each comma-separated term overwrites one
// field of a single running word.
func wordWithField(dest, v, l, r int) int {
	return word.New(dest).WithField(word.New(v), l, r).Int()
}

// AIF is the parsed A/I/F parts of an instruction's address field.
type AIF struct {
	A          int    // the A-part's value, valid unless Future != "" or HasLiteral
	Future     string // an undefined symbol named by the A-part, if any
	Literal    int    // the value of a `=expr=` literal A-part
	HasLiteral bool
	I          int // the I-part (index register), 0 if absent
	F          int // the F-part, valid only if HasF
	HasF       bool
}

// parseAIF splits an instruction's address field into its A, I, and F
// parts. The F-part (if present) is a parenthesized suffix; what remains
// is split on ',' into A and I parts.
func parseAIF(s string, star int, lookup symbolLookup) (AIF, error) {
	var out AIF

	if lp := strings.IndexByte(s, '('); lp != -1 {
		if s[len(s)-1] != ')' {
			return AIF{}, fmt.Errorf("asm: malformed field specifier in %q", s)
		}
		fp := s[lp+1 : len(s)-1]
		f, err := parseExpr(fp, star, lookup)
		if err != nil {
			return AIF{}, err
		}
		out.F = f
		out.HasF = true
		s = s[:lp]
	}

	ap, ip := s, ""
	if c := strings.IndexByte(s, ','); c != -1 {
		ap, ip = s[:c], s[c+1:]
	}

	if ap == "" {
		out.A = 0
	} else if ap[0] == '=' {
		if len(ap) < 3 || ap[len(ap)-1] != '=' {
			return AIF{}, fmt.Errorf("asm: malformed literal %q", ap)
		}
		lit, err := parseExpr(ap[1:len(ap)-1], star, lookup)
		if err != nil {
			return AIF{}, err
		}
		out.Literal = lit
		out.HasLiteral = true
	} else if isSingleSymbol(ap) {
		if val, ok := lookup(ap); ok {
			out.A = val
		} else {
			out.Future = ap
		}
	} else {
		a, err := parseExpr(ap, star, lookup)
		if err != nil {
			return AIF{}, err
		}
		out.A = a
	}

	if ip != "" {
		i, err := parseExpr(ip, star, lookup)
		if err != nil {
			return AIF{}, err
		}
		out.I = i
	}

	return out, nil
}

// isSingleSymbol reports whether s is entirely a symbol atom (letters
// and digits, at least one letter, no operators), the case in which an
// undefined A-part is a future reference rather than an expression.
func isSingleSymbol(s string) bool {
	hasLetter := false
	for i := 0; i < len(s); i++ {
		switch {
		case isUpper(s[i]):
			hasLetter = true
		case isDigit(s[i]):
		default:
			return false
		}
	}
	return hasLetter
}

// parseW parses a W-value: a comma-separated list of expr or
// expr(expr), each term overwriting the named field of the accumulating
// word, left to right.
func parseW(s string, star int, lookup symbolLookup) (int, error) {
	e := 0
	for _, term := range strings.Split(s, ",") {
		lp := strings.IndexByte(term, '(')
		if lp == -1 {
			v, err := parseExpr(term, star, lookup)
			if err != nil {
				return 0, err
			}
			e = v
			continue
		}
		if term[len(term)-1] != ')' {
			return 0, fmt.Errorf("asm: malformed W-value term %q", term)
		}
		v, err := parseExpr(term[:lp], star, lookup)
		if err != nil {
			return 0, err
		}
		f, err := parseExpr(term[lp+1:len(term)-1], star, lookup)
		if err != nil {
			return 0, err
		}
		l, r := f/8, f%8
		if l > r || r > 5 {
			return 0, fmt.Errorf("asm: bad field %d in W-value term %q", f, term)
		}
		e = wordWithField(e, v, l, r)
	}
	return e, nil
}
