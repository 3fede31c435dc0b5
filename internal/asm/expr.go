package asm

import (
	"fmt"
	"strconv"
)

// symbolLookup resolves a defined global or past local symbol to its
// address. ok is false if the symbol is undefined (or is a future local,
// which callers must reject in expression context).
type symbolLookup func(sym string) (val int, ok bool)

// parseExpr evaluates a MIXAL expression: left-to-right, no operator
// precedence, atoms are decimal integers, symbols, or the location
// counter atom '*'. Binary operators are + - * / // :; // is Knuth's
// "(a * 2^30) / b" truncated floor-divide, not the reference assembler's
// broken "%" stand-in.
func parseExpr(s string, star int, lookup symbolLookup) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("asm: empty expression")
	}
	i := 0
	e := 0
	first := true
	for i < len(s) {
		binop := "+"
		if !first {
			switch s[i] {
			case '/':
				i++
				if i < len(s) && s[i] == '/' {
					binop = "//"
					i++
				} else {
					binop = "/"
				}
			default:
				binop = string(s[i])
				i++
			}
		}
		first = false

		if i == len(s) {
			return 0, fmt.Errorf("asm: expression %q ends with a dangling operator %q", s, binop)
		}

		neg := false
		if s[i] == '+' || s[i] == '-' {
			neg = s[i] == '-'
			i++
		}
		if i == len(s) {
			return 0, fmt.Errorf("asm: expression %q has no atom after a unary sign", s)
		}

		var atom int
		switch {
		case s[i] == '*':
			atom = star
			i++
		default:
			start := i
			hasLetter := false
			for i < len(s) && (isDigit(s[i]) || isUpper(s[i])) {
				if isUpper(s[i]) {
					hasLetter = true
				}
				i++
			}
			tok := s[start:i]
			if tok == "" {
				return 0, fmt.Errorf("asm: expected an atom in expression %q", s)
			}
			if hasLetter {
				val, ok := lookup(tok)
				if !ok {
					return 0, fmt.Errorf("asm: undefined symbol %q in expression %q", tok, s)
				}
				atom = val
			} else {
				n, err := strconv.Atoi(tok)
				if err != nil {
					return 0, fmt.Errorf("asm: bad numeric atom %q: %w", tok, err)
				}
				atom = n
			}
		}
		if neg {
			atom = -atom
		}

		switch binop {
		case "+":
			e += atom
		case "-":
			e -= atom
		case "*":
			e *= atom
		case "/":
			if atom == 0 {
				return 0, fmt.Errorf("asm: division by zero in expression %q", s)
			}
			e /= atom
		case "//":
			if atom == 0 {
				return 0, fmt.Errorf("asm: division by zero in expression %q", s)
			}
			e = int((int64(e) << 30) / int64(atom))
		case ":":
			e = 8*e + atom
		default:
			return 0, fmt.Errorf("asm: unknown operator %q", binop)
		}
	}
	return e, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
