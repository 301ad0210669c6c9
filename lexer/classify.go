package lexer

// classifyTable is the 256-entry static byte-class table of spec.md §4.1.
var classifyTable [256]class

func init() {
	for b := 0; b < 256; b++ {
		switch {
		case b == ' ':
			classifyTable[b] = classWhitespace
		case b == '\t':
			classifyTable[b] = classTab
		case b == '\n' || b == '\r':
			classifyTable[b] = classEOL
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z':
			classifyTable[b] = classLetter
		case b >= '0' && b <= '9':
			classifyTable[b] = classDigit
		case b == '_':
			classifyTable[b] = classUnderscore
		case b == '"':
			classifyTable[b] = classQuote
		case b == '\\':
			classifyTable[b] = classBackslash
		case b == '/':
			classifyTable[b] = classSlash
		case b == '#':
			classifyTable[b] = classHash
		case b == '(', b == ')', b == '{', b == '}', b == '[', b == ']', b == ',', b == ':', b == ';':
			classifyTable[b] = classSeparator
		case b == 0xEF:
			classifyTable[b] = classBOM0
		case b >= 0x80 && b <= 0xBF:
			classifyTable[b] = classCont2
		case b >= 0xC2 && b <= 0xDF:
			classifyTable[b] = classLead2
		case b >= 0xE0 && b <= 0xEF:
			classifyTable[b] = classLead3
		case b >= 0xF0 && b <= 0xF4:
			classifyTable[b] = classLead4
		default:
			classifyTable[b] = classOperatorByte
		}
	}
}

func classify(b byte) class { return classifyTable[b] }

func isUnicodeLeadByte(b byte) bool {
	c := classify(b)
	return c == classLead2 || c == classLead3 || c == classLead4 || c == classBOM0
}

// isUnicodeWhitespaceLead reports whether s begins with one of the
// reclassified-as-whitespace code points: NBSP (U+00A0), line separator
// (U+2028), paragraph separator (U+2029), or BOM (U+FEFF) appearing
// anywhere but offset 0 (offset 0 is consumed silently by New).
func isUnicodeWhitespaceLead(s string) bool {
	switch {
	case len(s) >= 2 && s[0] == 0xC2 && s[1] == 0xA0: // NBSP
		return true
	case len(s) >= 3 && s[0] == 0xE2 && s[1] == 0x80 && (s[2] == 0xA8 || s[2] == 0xA9): // U+2028/U+2029
		return true
	case len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF: // BOM
		return true
	}
	return false
}

// consumeUnicodeWhitespace advances past one reclassified whitespace code
// point and returns its byte length, or 0 if the lookahead does not start
// with one (the caller treats 0 as "stop skipping trivia").
func (l *Lexer) consumeUnicodeWhitespace() int {
	s := l.src[l.pos:]
	n := 0
	switch {
	case len(s) >= 2 && s[0] == 0xC2 && s[1] == 0xA0:
		n = 2
	case len(s) >= 3 && s[0] == 0xE2 && s[1] == 0x80 && (s[2] == 0xA8 || s[2] == 0xA9):
		n = 3
	case len(s) >= 3 && s[0] == 0xEF && s[1] == 0xBB && s[2] == 0xBF:
		n = 3
	}
	for i := 0; i < n; i++ {
		l.advanceByte()
	}
	return n
}

// decodeRune validates and measures the UTF-8 sequence beginning at s[0],
// returning the sequence's byte length and a bool reporting well-formedness.
// It deliberately does not decode to a rune value: the lexer never needs
// the code point itself outside the reclassification checks above, only a
// validity verdict and a byte count to advance by (spec.md §4.1: "Multi-byte
// sequences are decoded to validate form").
func decodeRune(s string) (width int, ok bool) {
	if len(s) == 0 {
		return 0, false
	}
	b0 := s[0]
	switch classify(b0) {
	case classLead2:
		if len(s) < 2 || classify(s[1]) != classCont2 {
			return 1, false
		}
		return 2, true
	case classLead3:
		if len(s) < 3 || classify(s[1]) != classCont2 || classify(s[2]) != classCont2 {
			return 1, false
		}
		return 3, true
	case classLead4:
		if len(s) < 4 || classify(s[1]) != classCont2 || classify(s[2]) != classCont2 || classify(s[3]) != classCont2 {
			return 1, false
		}
		return 4, true
	case classBOM0:
		// 0xEF is also a valid 3-byte lead (e.g. BOM, or ordinary text);
		// re-dispatch through the 3-byte path.
		if len(s) < 3 || classify(s[1]) != classCont2 || classify(s[2]) != classCont2 {
			return 1, false
		}
		return 3, true
	case classCont2:
		return 1, false // continuation byte with no lead: malformed
	default:
		return 1, b0 < 0x80
	}
}
