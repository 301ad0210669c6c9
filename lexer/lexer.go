// Package lexer implements the Kos byte-stream tokenizer (spec.md §4.1).
//
// The lexer classifies raw UTF-8 source bytes into [token.Token] values one
// at a time. It validates UTF-8 form itself (multi-byte sequences are
// decoded just enough to check well-formedness and to reclassify a handful
// of Unicode whitespace code points), rejects tabs outright, and hands
// string-interpolation continuation back to the parser via [ModeContinueString].
//
// Grounded on the teacher's single-pass, allocation-conscious style
// (dr8co/kong's lexer.go): no backtracking, a byte-class lookup table
// instead of chained comparisons, and string scanning that builds the
// string value with a strings.Builder.
package lexer

import (
	"strings"

	"github.com/kos-lang/kos/diag"
	"github.com/kos-lang/kos/token"
)

// Mode selects how NextToken interprets the current byte. ModeContinueString
// is used exactly once per interpolation: after the parser consumes the
// `\(...)` expression and reaches the matching `)`, it calls NextToken in
// this mode to resume scanning the string literal's remaining bytes.
type Mode int

const (
	ModeAny Mode = iota
	ModeContinueString
)

// class is a byte's lexical category, used to drive the classification
// table in classify.go.
type class int

const (
	classOther class = iota
	classWhitespace
	classEOL
	classLetter
	classDigit
	classUnderscore
	classSeparator
	classOperatorByte
	classSlash
	classBackslash
	classQuote
	classHash
	classTab
	classCont2 // UTF-8 continuation byte
	classLead2 // 2-byte sequence lead
	classLead3 // 3-byte sequence lead
	classLead4 // 4-byte sequence lead
	classBOM0  // 0xEF, possible BOM lead
)

// Lexer tokenizes one source buffer. It is single-threaded and
// non-reentrant: reading advances internal position, matching the
// compiler's single-threaded-per-unit concurrency model (spec.md §5).
type Lexer struct {
	fileID string
	src    string
	pos    int // current byte offset
	line   int32
	column int32

	// prefetchBegin marks the start of the token currently being formed.
	prefetchBegin int

	// oldPos/oldLine/oldColumn record the position before the most recent
	// advanceByte, for unget's one-byte pushback. The parser's
	// lambda-detection lookahead rewinds with Mark/Reset instead.
	oldPos    int
	oldLine   int32
	oldColumn int32

	// stringStyle remembers whether the string literal currently being
	// resumed (via ModeContinueString, after an interpolation's closing
	// `)`) is raw or cooked.
	stringStyle token.StringStyle
}

// New creates a Lexer over src, attributing positions to fileID. A UTF-8
// byte-order mark at offset 0 is skipped silently, per spec.md §4.1.
func New(fileID, src string) *Lexer {
	l := &Lexer{fileID: fileID, src: src, line: 1, column: 1}
	if strings.HasPrefix(src, "\xEF\xBB\xBF") {
		l.pos = 3
	}
	return l
}

// Pos returns the current source position, for callers that need it
// before calling NextToken (e.g. to record a landmark).
func (l *Lexer) Pos() diag.Position {
	return diag.Position{FileID: l.fileID, Line: l.line, Column: l.column}
}

// Mark is an opaque snapshot of the lexer's scan position, used by the
// parser's lambda-detection lookahead: consume tokens speculatively, then
// Reset to the saved mark (spec.md §4.2's "consumes tokens, then rewinds
// the lexer to the saved token").
type Mark struct {
	pos       int
	line      int32
	column    int32
	oldPos    int
	oldLine   int32
	oldColumn int32
}

// Mark captures the current scan position.
func (l *Lexer) Mark() Mark {
	return Mark{
		pos: l.pos, line: l.line, column: l.column,
		oldPos: l.oldPos, oldLine: l.oldLine, oldColumn: l.oldColumn,
	}
}

// Reset rewinds the lexer to a position previously captured with Mark.
func (l *Lexer) Reset(m Mark) {
	l.pos, l.line, l.column = m.pos, m.line, m.column
	l.oldPos, l.oldLine, l.oldColumn = m.oldPos, m.oldLine, m.oldColumn
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *Lexer) peekByte() byte {
	if l.atEOF() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekByteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

// advanceByte consumes one byte, updating line/column per spec.md §4.1: CR,
// LF, and CRLF each advance the line counter by exactly one and reset
// column to 1; any other byte, including each byte of a multi-byte UTF-8
// sequence, advances the column by one.
func (l *Lexer) advanceByte() byte {
	l.oldPos, l.oldLine, l.oldColumn = l.pos, l.line, l.column
	b := l.src[l.pos]
	l.pos++
	switch b {
	case '\r':
		if l.peekByte() == '\n' {
			l.pos++
		}
		l.line++
		l.column = 1
	case '\n':
		l.line++
		l.column = 1
	default:
		l.column++
	}
	return b
}

// unget restores the position saved by the most recent advanceByte. Only
// one level of pushback is supported, matching spec.md §4.1's
// (prefetch_begin, prefetch_end)/old_pos design.
func (l *Lexer) unget() {
	l.pos, l.line, l.column = l.oldPos, l.oldLine, l.oldColumn
}

func (l *Lexer) errorAt(pos diag.Position, format string, args ...any) *diag.Error {
	return diag.New(diag.ScanningFailed, pos, format, args...)
}

// NextToken scans and returns the next token, or an error describing the
// first lexical problem encountered. mode is ModeContinueString only
// immediately after the parser closed an interpolation's `)`.
func (l *Lexer) NextToken(mode Mode) (token.Token, error) {
	if mode == ModeContinueString {
		return l.continueString()
	}

	if err := l.skipTrivia(); err != nil {
		return token.Token{}, err
	}

	start := l.Pos()
	l.prefetchBegin = l.pos

	if l.atEOF() {
		return token.Token{Kind: token.EOF, Pos: start}, nil
	}

	b := l.peekByte()

	switch {
	case b == 'r' && l.peekByteAt(1) == '"':
		l.advanceByte()
		l.advanceByte()
		return l.scanString(start, token.Raw)
	case classify(b) == classLetter || b == '_':
		return l.scanIdentifier(start)
	case classify(b) == classDigit:
		return l.scanNumber(start)
	case b == '"':
		l.advanceByte()
		return l.scanString(start, token.Cooked)
	case classify(b) == classSeparator:
		l.advanceByte()
		sep, _ := token.LookupSeparator(b)
		return token.Token{Kind: token.Separator, Sep: sep, Literal: string(b), Pos: start}, nil
	case classify(b) == classTab:
		l.advanceByte()
		return token.Token{}, l.errorAt(start, "unexpected tab character, tabs are not allowed")
	default:
		return l.scanOperator(start)
	}
}

// skipTrivia consumes whitespace and comments. It does not consume EOL or
// comment tokens as such — the parser's implicit-semicolon logic instead
// consults hadEOL, which the caller (parser) tracks across NextToken
// calls by diffing line numbers; a comment spanning a line break counts as
// an EOL per spec.md §4.1.
func (l *Lexer) skipTrivia() error {
	for {
		if l.atEOF() {
			return nil
		}
		b := l.peekByte()
		switch {
		case b == ' ' || b == '\r' || b == '\n':
			l.advanceByte()
		case classify(b) == classTab:
			return nil // let NextToken report it positioned correctly
		case isUnicodeWhitespaceLead(l.src[l.pos:]):
			n := l.consumeUnicodeWhitespace()
			if n == 0 {
				return nil
			}
		case b == '#':
			l.skipLineComment()
		case b == '/' && l.peekByteAt(1) == '/':
			l.skipLineComment()
		case b == '/' && l.peekByteAt(1) == '*':
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) skipLineComment() {
	for !l.atEOF() && l.peekByte() != '\n' && l.peekByte() != '\r' {
		l.advanceByte()
	}
}

func (l *Lexer) skipBlockComment() error {
	start := l.Pos()
	l.advanceByte() // '/'
	l.advanceByte() // '*'
	for {
		if l.atEOF() {
			return l.errorAt(start, "unterminated block comment")
		}
		if l.peekByte() == '*' && l.peekByteAt(1) == '/' {
			l.advanceByte()
			l.advanceByte()
			return nil
		}
		l.advanceByte()
	}
}

func (l *Lexer) scanIdentifier(start diag.Position) (token.Token, error) {
	for !l.atEOF() {
		b := l.peekByte()
		c := classify(b)
		if c != classLetter && c != classDigit && b != '_' {
			break
		}
		l.advanceByte()
	}
	lit := l.src[l.prefetchBegin:l.pos]
	if len(lit) > token.MaxTokenLength {
		return token.Token{}, l.errorAt(start, "token too long")
	}
	if kw, ok := token.LookupKeyword(lit); ok {
		return token.Token{Kind: token.Keyword, Keyword: kw, Literal: lit, Pos: start}, nil
	}
	return token.Token{Kind: token.Identifier, Literal: lit, Pos: start}, nil
}

// scanOperator performs the greedy longest-match scan of spec.md §4.1,
// with the special cases that a run of three dots is `...` and a run of
// two dots is two consecutive `.` tokens (the scanner backs up one byte).
func (l *Lexer) scanOperator(start diag.Position) (token.Token, error) {
	b := l.peekByte()
	entries, ok := token.LookupOperator(b)
	if !ok {
		if isUnicodeLeadByte(b) {
			return token.Token{}, l.errorAt(start, "invalid character")
		}
		l.advanceByte()
		return token.Token{}, l.errorAt(start, "invalid character %q", b)
	}
	// entries is sorted longest-spelling-first, so the first match found is
	// the greedy longest match. A run of two dots naturally falls through
	// to the single "." alternative twice (it never matches "..."),
	// producing two consecutive Dot tokens as spec.md §4.1 requires.
	for _, e := range entries {
		if l.matchesAhead(e.Text()) {
			for range []byte(e.Text()) {
				l.advanceByte()
			}
			return token.Token{Kind: token.Operator, Operator: e.Code(), Literal: e.Text(), Pos: start}, nil
		}
	}
	// Fallback: no multi-byte alternative matched; longest entry list is
	// sorted longest-first so absence here means only the single-byte form
	// applies, which is always present in the table for single-char ops.
	l.advanceByte()
	return token.Token{}, l.errorAt(start, "invalid character %q", b)
}

func (l *Lexer) matchesAhead(s string) bool {
	if l.pos+len(s) > len(l.src) {
		return false
	}
	return l.src[l.pos:l.pos+len(s)] == s
}

