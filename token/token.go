// Package token defines the lexical token vocabulary of Kos.
//
// A [Token] is the triple the lexer produces: a [Kind], a payload specific
// to that kind (keyword discriminator, [OperatorCode], or [SeparatorCode]),
// and a [diag.Position]. Keyword lookup is a binary search over a sorted,
// fixed table, mirroring how the lexer classifies identifiers without
// allocating a hash table per compilation unit.
package token

import "github.com/kos-lang/kos/diag"

// Kind enumerates the categories of token the lexer can produce.
type Kind int

const (
	Invalid Kind = iota
	Whitespace
	EOL
	Comment
	EOF
	Identifier
	Keyword
	Numeric
	String     // closed string literal, e.g. "abc"
	StringOpen // string ending in `\(` — interpolation continues
	Operator
	Separator
)

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "Invalid"
	case Whitespace:
		return "Whitespace"
	case EOL:
		return "EOL"
	case Comment:
		return "Comment"
	case EOF:
		return "EOF"
	case Identifier:
		return "Identifier"
	case Keyword:
		return "Keyword"
	case Numeric:
		return "Numeric"
	case String:
		return "String"
	case StringOpen:
		return "StringOpen"
	case Operator:
		return "Operator"
	case Separator:
		return "Separator"
	default:
		return "Unknown"
	}
}

// MaxTokenLength is the hard byte-length cap on a single token (spec.md §3.1,
// §8.3). A token at exactly this length is accepted; one byte longer is a
// ScanningFailed error.
const MaxTokenLength = 65535

// NumberBase records which numeral system produced a Numeric token, needed
// by the parser/optimizer to interpret Token.Literal correctly.
type NumberBase int

const (
	Decimal NumberBase = iota
	Hexadecimal
	Binary
)

// StringStyle distinguishes a raw string (r"...", only `\"` is an active
// escape) from a regular, escape-processed string.
type StringStyle int

const (
	Cooked StringStyle = iota
	Raw
)

// Token is a single lexical unit: its kind, the exact source bytes it
// spans, a payload discriminated by Kind, and its source position.
type Token struct {
	Kind    Kind
	Literal string
	Pos     diag.Position

	Keyword  KeywordID     // valid when Kind == Keyword
	Operator OperatorCode  // valid when Kind == Operator
	Sep      SeparatorCode // valid when Kind == Separator

	NumberBase  NumberBase  // valid when Kind == Numeric
	StringStyle StringStyle // valid when Kind == String or StringOpen
}

// KeywordID discriminates reserved words. The table below is sorted by
// literal spelling so lookup can binary-search it directly off the
// identifier's source bytes.
type KeywordID int

//nolint:revive
const (
	KwInvalid KeywordID = iota
	KwAssert
	KwAsync
	KwBreak
	KwCase
	KwCatch
	KwClass
	KwConst
	KwConstructor
	KwContinue
	KwDefault
	KwDefer
	KwDo
	KwElse
	KwExtends
	KwFallthrough
	KwFalse
	KwFor
	KwFun
	KwGetter
	KwIf
	KwImport
	KwIn
	KwLoop
	KwPrivate
	KwProtected
	KwPublic
	KwRepeat
	KwReturn
	KwSetter
	KwStatic
	KwSuper
	KwSwitch
	KwThis
	KwThrow
	KwTrue
	KwTry
	KwTypeof
	KwVar
	KwVoid
	KwWhile
	KwWith
	KwYield
)

type keywordEntry struct {
	text string
	id   KeywordID
}

// keywords is sorted lexicographically so LookupKeyword can binary-search it.
var keywords = []keywordEntry{
	{"assert", KwAssert},
	{"async", KwAsync},
	{"break", KwBreak},
	{"case", KwCase},
	{"catch", KwCatch},
	{"class", KwClass},
	{"const", KwConst},
	{"constructor", KwConstructor},
	{"continue", KwContinue},
	{"default", KwDefault},
	{"defer", KwDefer},
	{"do", KwDo},
	{"else", KwElse},
	{"extends", KwExtends},
	{"fallthrough", KwFallthrough},
	{"false", KwFalse},
	{"for", KwFor},
	{"fun", KwFun},
	{"getter", KwGetter},
	{"if", KwIf},
	{"import", KwImport},
	{"in", KwIn},
	{"loop", KwLoop},
	{"private", KwPrivate},
	{"protected", KwProtected},
	{"public", KwPublic},
	{"repeat", KwRepeat},
	{"return", KwReturn},
	{"setter", KwSetter},
	{"static", KwStatic},
	{"super", KwSuper},
	{"switch", KwSwitch},
	{"this", KwThis},
	{"throw", KwThrow},
	{"true", KwTrue},
	{"try", KwTry},
	{"typeof", KwTypeof},
	{"var", KwVar},
	{"void", KwVoid},
	{"while", KwWhile},
	{"with", KwWith},
	{"yield", KwYield},
}

// LookupKeyword binary-searches the sorted keyword table for ident and
// reports whether it is a reserved word.
func LookupKeyword(ident string) (KeywordID, bool) {
	lo, hi := 0, len(keywords)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case keywords[mid].text == ident:
			return keywords[mid].id, true
		case keywords[mid].text < ident:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return KwInvalid, false
}

// String renders the reserved-word spelling for id, or "" if id is not a
// valid keyword.
func (id KeywordID) String() string {
	for _, k := range keywords {
		if k.id == id {
			return k.text
		}
	}
	return ""
}
