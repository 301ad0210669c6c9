package lexer

import (
	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/token"
)

// scanNumber implements spec.md §4.1's numeric-literal grammar: decimal
// with an optional fraction and an optional [eEpP][+-]?digits exponent
// ('p'/'P' accepted equivalently to 'e'/'E', an Open Question in spec.md §9 resolved in favor
// of preserving the original's behavior), hexadecimal `0x...`, binary
// `0b...`, and underscores as digit separators in every form.
func (l *Lexer) scanNumber(start diag.Position) (token.Token, error) {
	base := token.Decimal

	if l.peekByte() == '0' && (l.peekByteAt(1) == 'x' || l.peekByteAt(1) == 'X') {
		base = token.Hexadecimal
		l.advanceByte()
		l.advanceByte()
		if err := l.scanDigitsRequired(start, isHexDigit, "expected hex digit"); err != nil {
			return token.Token{}, err
		}
	} else if l.peekByte() == '0' && (l.peekByteAt(1) == 'b' || l.peekByteAt(1) == 'B') {
		base = token.Binary
		l.advanceByte()
		l.advanceByte()
		if err := l.scanDigitsRequired(start, isBinaryDigit, "expected binary digit"); err != nil {
			return token.Token{}, err
		}
	} else {
		l.scanDigits(isDecimalDigit)

		if l.peekByte() == '.' && isDecimalDigit(l.peekByteAt(1)) {
			l.advanceByte()
			l.scanDigits(isDecimalDigit)
		}

		if c := l.peekByte(); c == 'e' || c == 'E' || c == 'p' || c == 'P' {
			save := l.pos
			l.advanceByte()
			if c := l.peekByte(); c == '+' || c == '-' {
				l.advanceByte()
			}
			if !isDecimalDigit(l.peekByte()) {
				// Not actually an exponent; back out so the trailing-
				// character check below reports the 'e'/'p' as an invalid
				// numeric literal.
				l.pos = save
			} else {
				l.scanDigits(isDecimalDigit)
			}
		}
	}

	// Trailing alphanumerics immediately after a well-formed numeral are a
	// lexical error ("invalid decimal") rather than silently starting a new
	// identifier token.
	if isLetterOrDigit(l.peekByte()) {
		for isLetterOrDigit(l.peekByte()) || l.peekByte() == '_' {
			l.advanceByte()
		}
		return token.Token{}, l.errorAt(start, "invalid numeric literal: unexpected trailing characters")
	}

	lit := l.src[l.prefetchBegin:l.pos]
	if len(lit) > token.MaxTokenLength {
		return token.Token{}, l.errorAt(start, "token too long")
	}
	return token.Token{Kind: token.Numeric, Literal: lit, NumberBase: base, Pos: start}, nil
}

func (l *Lexer) scanDigits(pred func(byte) bool) {
	for {
		b := l.peekByte()
		if pred(b) {
			l.advanceByte()
			continue
		}
		if b == '_' && pred(l.peekByteAt(1)) {
			l.advanceByte() // skip the separator
			continue
		}
		break
	}
}

func (l *Lexer) scanDigitsRequired(start diag.Position, pred func(byte) bool, msg string) error {
	if !pred(l.peekByte()) {
		return l.errorAt(start, "%s", msg)
	}
	l.scanDigits(pred)
	return nil
}

func isDecimalDigit(b byte) bool { return b >= '0' && b <= '9' }
func isHexDigit(b byte) bool {
	return isDecimalDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
func isBinaryDigit(b byte) bool { return b == '0' || b == '1' }
func isLetterOrDigit(b byte) bool {
	c := classify(b)
	return c == classLetter || c == classDigit
}
