package syntax

import (
	"strings"
	"unicode"
)

// Tokenize splits source into tokens. It never fails: characters that
// match no rule become single-character TokenUnknown tokens.
//
// Lines are lexed independently, so no token spans a line break. Block
// comments and string or character literals that are not closed on
// their own line are not recognized as such; their characters are
// classified by the remaining rules instead.
func Tokenize(source string) []Token {
	tokens := make([]Token, 0, len(source)/4)
	for i, text := range strings.Split(source, "\n") {
		l := newLineLexer(text, i+1)
		tokens = l.scan(tokens)
	}
	return tokens
}

// lineLexer scans a single physical line. Columns count runes.
type lineLexer struct {
	input []rune
	line  int
	pos   int
}

func newLineLexer(text string, line int) *lineLexer {
	return &lineLexer{
		input: []rune(text),
		line:  line,
	}
}

func (l *lineLexer) peek() rune {
	return l.peekN(0)
}

func (l *lineLexer) peekN(n int) rune {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *lineLexer) token(typ TokenType, start, end int) Token {
	return Token{
		Type:   typ,
		Value:  string(l.input[start:end]),
		Line:   l.line,
		Column: start + 1,
	}
}

func (l *lineLexer) scan(tokens []Token) []Token {
	for l.pos < len(l.input) {
		start := l.pos
		ch := l.peek()

		if unicode.IsSpace(ch) {
			l.pos++
			continue
		}

		if ch == '/' && l.peekN(1) == '/' {
			tokens = append(tokens, l.token(TokenComment, start, len(l.input)))
			l.pos = len(l.input)
			break
		}

		if ch == '/' && l.peekN(1) == '*' {
			if end := l.indexFrom(start+2, "*/"); end >= 0 {
				l.pos = end + 2
				tokens = append(tokens, l.token(TokenComment, start, l.pos))
				continue
			}
		}

		if ch == '"' || ch == '\'' {
			if end, ok := l.scanQuoted(ch); ok {
				l.pos = end + 1
				tokens = append(tokens, l.token(TokenLiteral, start, l.pos))
				continue
			}
		}

		if isDigit(ch) {
			l.scanNumber()
			tokens = append(tokens, l.token(TokenLiteral, start, l.pos))
			continue
		}

		if isIdentStart(ch) {
			for l.pos < len(l.input) && isIdentPart(l.peek()) {
				l.pos++
			}
			tok := l.token(TokenIdentifier, start, l.pos)
			if IsKeyword(tok.Value) {
				tok.Type = TokenKeyword
			}
			tokens = append(tokens, tok)
			continue
		}

		if op := l.matchOperator(); op != "" {
			l.pos += len(op)
			tokens = append(tokens, l.token(TokenOperator, start, l.pos))
			continue
		}

		l.pos++
		if isSeparator(ch) {
			tokens = append(tokens, l.token(TokenSeparator, start, l.pos))
		} else {
			tokens = append(tokens, l.token(TokenUnknown, start, l.pos))
		}
	}
	return tokens
}

// indexFrom returns the index of the first occurrence of s at or after
// from, or -1.
func (l *lineLexer) indexFrom(from int, s string) int {
	needle := []rune(s)
	for i := from; i+len(needle) <= len(l.input); i++ {
		if hasPrefixAt(l.input, i, needle) {
			return i
		}
	}
	return -1
}

// scanQuoted looks for the closing quote of a literal opened at the
// cursor. A backslash escapes the character after it. It reports the
// index of the closing quote and whether one exists on this line.
func (l *lineLexer) scanQuoted(quote rune) (int, bool) {
	j := l.pos + 1
	for j < len(l.input) && l.input[j] != quote {
		if l.input[j] == '\\' && j+1 < len(l.input) {
			j += 2
		} else {
			j++
		}
	}
	return j, j < len(l.input)
}

// scanNumber consumes digits, dots, exponent markers and an exponent
// sign directly after a marker. The result is not validated.
func (l *lineLexer) scanNumber() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isDigit(ch), ch == '.', ch == 'e', ch == 'E':
		case (ch == '+' || ch == '-') && l.pos > 0 && isExponent(l.input[l.pos-1]):
		default:
			return
		}
		l.pos++
	}
}

func (l *lineLexer) matchOperator() string {
	for _, op := range operators {
		if hasPrefixAt(l.input, l.pos, []rune(op)) {
			return op
		}
	}
	return ""
}

func hasPrefixAt(input []rune, at int, prefix []rune) bool {
	if at+len(prefix) > len(input) {
		return false
	}
	for i, r := range prefix {
		if input[at+i] != r {
			return false
		}
	}
	return true
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func isExponent(ch rune) bool {
	return ch == 'e' || ch == 'E'
}

func isIdentStart(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}
