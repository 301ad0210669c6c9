package lexer

import (
	"strings"

	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/token"
)

// scanString scans the body of a string literal that has just had its
// opening quote (and, for raw strings, the leading `r`) consumed. It
// returns a closed String token, a StringOpen token if it hits `\(`
// (interpolation), or an error.
func (l *Lexer) scanString(start diag.Position, style token.StringStyle) (token.Token, error) {
	l.stringStyle = style
	return l.scanStringBody(start, style)
}

// continueString resumes scanning a string literal after the parser has
// consumed an interpolated expression up through its closing `)`.
func (l *Lexer) continueString() (token.Token, error) {
	start := l.Pos()
	l.prefetchBegin = l.pos
	return l.scanStringBody(start, l.stringStyle)
}

func (l *Lexer) scanStringBody(start diag.Position, style token.StringStyle) (token.Token, error) {
	var b strings.Builder

	for {
		if l.atEOF() {
			return token.Token{}, l.errorAt(l.Pos(), "unexpected end of file in string literal")
		}
		c := l.peekByte()
		if c == '\n' || c == '\r' {
			return l.Token("", style, start), l.errorAt(l.Pos(), "unexpected end of line in string literal")
		}
		if c == '"' {
			l.advanceByte()
			if len(b.String()) > token.MaxTokenLength {
				return token.Token{}, l.errorAt(start, "token too long")
			}
			return token.Token{Kind: token.String, Literal: b.String(), StringStyle: style, Pos: start}, nil
		}
		if c == '\\' {
			litStart := l.Pos()
			l.advanceByte()
			if l.atEOF() {
				return token.Token{}, l.errorAt(litStart, "unexpected end of file in string literal")
			}
			esc := l.peekByte()

			if style == token.Raw {
				if esc == '"' {
					l.advanceByte()
					b.WriteByte('"')
					continue
				}
				// Raw strings treat any other backslash literally.
				b.WriteByte('\\')
				continue
			}

			if esc == '(' {
				l.advanceByte()
				return token.Token{Kind: token.StringOpen, Literal: b.String(), StringStyle: style, Pos: start}, nil
			}

			switch esc {
			case 'n':
				l.advanceByte()
				b.WriteByte('\n')
			case 'r':
				l.advanceByte()
				b.WriteByte('\r')
			case 't':
				l.advanceByte()
				b.WriteByte('\t')
			case 'v':
				l.advanceByte()
				b.WriteByte('\v')
			case 'f':
				l.advanceByte()
				b.WriteByte('\f')
			case '\\':
				l.advanceByte()
				b.WriteByte('\\')
			case '"':
				l.advanceByte()
				b.WriteByte('"')
			case '0':
				l.advanceByte()
				b.WriteByte(0)
			case 'x':
				l.advanceByte()
				if err := l.scanHexEscape(litStart, &b); err != nil {
					return token.Token{}, err
				}
			default:
				return token.Token{}, l.errorAt(litStart, "invalid escape sequence")
			}
			continue
		}

		// Copy one UTF-8 sequence verbatim, validating its form.
		width, ok := decodeRune(l.src[l.pos:])
		if !ok {
			return token.Token{}, l.errorAt(l.Pos(), "invalid UTF-8 sequence in string literal")
		}
		for i := 0; i < width; i++ {
			b.WriteByte(l.peekByte())
			l.advanceByte()
		}
	}
}

// scanHexEscape scans `HH` (exactly two hex digits) or `{H+}` (one to six
// hex digits) after `\x` has already been consumed, appending the decoded
// byte (or UTF-8 encoding of the code point, for the brace form) to b.
func (l *Lexer) scanHexEscape(pos diag.Position, b *strings.Builder) error {
	if l.peekByte() == '{' {
		l.advanceByte()
		var v int64
		digits := 0
		for isHexDigit(l.peekByte()) {
			if digits == 6 {
				return l.errorAt(pos, "too many hex digits in \\x{} escape")
			}
			v = v*16 + int64(hexValue(l.peekByte()))
			digits++
			l.advanceByte()
		}
		if digits == 0 {
			return l.errorAt(pos, "missing hex digits in \\x{} escape")
		}
		if l.peekByte() != '}' {
			return l.errorAt(pos, "unterminated \\x{} escape")
		}
		l.advanceByte()
		writeCodepoint(b, rune(v))
		return nil
	}

	var v int64
	for i := 0; i < 2; i++ {
		if !isHexDigit(l.peekByte()) {
			return l.errorAt(pos, "missing hex digits in \\x escape")
		}
		v = v*16 + int64(hexValue(l.peekByte()))
		l.advanceByte()
	}
	b.WriteByte(byte(v))
	return nil
}

func hexValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}

// writeCodepoint encodes r as UTF-8 into b, without relying on unicode/utf8
// so a surrogate or out-of-range code point (legal input to \x{...} per
// spec.md) is written as raw continuation bytes rather than U+FFFD.
func writeCodepoint(b *strings.Builder, r rune) {
	v := uint32(r)
	switch {
	case v < 0x80:
		b.WriteByte(byte(v))
	case v < 0x800:
		b.WriteByte(byte(0xC0 | (v >> 6)))
		b.WriteByte(byte(0x80 | (v & 0x3F)))
	case v < 0x10000:
		b.WriteByte(byte(0xE0 | (v >> 12)))
		b.WriteByte(byte(0x80 | ((v >> 6) & 0x3F)))
		b.WriteByte(byte(0x80 | (v & 0x3F)))
	default:
		b.WriteByte(byte(0xF0 | (v >> 18)))
		b.WriteByte(byte(0x80 | ((v >> 12) & 0x3F)))
		b.WriteByte(byte(0x80 | ((v >> 6) & 0x3F)))
		b.WriteByte(byte(0x80 | (v & 0x3F)))
	}
}

// Token is a small helper used only by the EOL-in-string error path to
// still hand back a best-effort token alongside the error, mirroring how
// the rest of the lexer prefers to return a (token, error) pair rather
// than a naked error.
func (l *Lexer) Token(lit string, style token.StringStyle, start diag.Position) token.Token {
	return token.Token{Kind: token.Invalid, Literal: lit, StringStyle: style, Pos: start}
}
