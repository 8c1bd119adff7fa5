package syntax

import "fmt"

type Diagnostic struct {
	Message string `json:"message" msgpack:"message"`
	Line    int    `json:"line" msgpack:"line"`
	Column  int    `json:"column" msgpack:"column"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

type CheckResult struct {
	Diagnostics []Diagnostic
	Outline     *Node
}

// Check validates bracket nesting, flags return, break and continue
// statements not directly followed by a semicolon, and builds the class
// and method outline. Problems in the input are reported as diagnostics;
// Check itself never fails.
func Check(tokens []Token) CheckResult {
	c := &checker{diagnostics: []Diagnostic{}}
	for i, tok := range tokens {
		if tok.Type == TokenSeparator {
			c.bracket(tok)
		}
		if tok.Type == TokenKeyword && isJump(tok.Value) {
			c.semicolon(tokens, i)
		}
	}
	c.unclosed()

	return CheckResult{
		Diagnostics: c.diagnostics,
		Outline:     buildOutline(tokens),
	}
}

type openBracket struct {
	char   string
	line   int
	column int
}

type checker struct {
	stack       []openBracket
	diagnostics []Diagnostic
}

func (c *checker) report(line, column int, format string, args ...any) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  column,
	})
}

var closerFor = map[string]string{
	"(": ")",
	"{": "}",
	"[": "]",
}

var openerFor = map[string]string{
	")": "(",
	"}": "{",
	"]": "[",
}

func (c *checker) bracket(tok Token) {
	if _, ok := closerFor[tok.Value]; ok {
		c.stack = append(c.stack, openBracket{char: tok.Value, line: tok.Line, column: tok.Column})
		return
	}
	opener, ok := openerFor[tok.Value]
	if !ok {
		return
	}
	if len(c.stack) == 0 {
		c.report(tok.Line, tok.Column, "Unexpected closing bracket '%s'", tok.Value)
		return
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	if top.char != opener {
		c.report(tok.Line, tok.Column, "Mismatched bracket: expected '%s' but found '%s'", closerFor[top.char], tok.Value)
	}
}

func (c *checker) unclosed() {
	for _, b := range c.stack {
		c.report(b.line, b.column, "Unclosed bracket '%s'", b.char)
	}
	c.stack = nil
}

func isJump(word string) bool {
	return word == "return" || word == "break" || word == "continue"
}

// semicolon looks only at the token immediately after the keyword, so a
// statement with an operand ("return x;") is reported too.
func (c *checker) semicolon(tokens []Token, i int) {
	if i+1 >= len(tokens) {
		return
	}
	if tokens[i+1].Is(TokenSeparator, ";") {
		return
	}
	kw := tokens[i]
	c.report(kw.Line, kw.Column+len([]rune(kw.Value)), "Missing semicolon after '%s' statement", kw.Value)
}
