package syntax

import (
	"fmt"
	"sort"
)

type TokenType int

const (
	TokenKeyword TokenType = iota
	TokenIdentifier
	TokenOperator
	TokenLiteral
	TokenSeparator
	TokenComment
	// TokenWhitespace is reserved. The lexer skips whitespace and never
	// emits it.
	TokenWhitespace
	TokenUnknown
)

var tokenTypeNames = map[TokenType]string{
	TokenKeyword:    "KEYWORD",
	TokenIdentifier: "IDENTIFIER",
	TokenOperator:   "OPERATOR",
	TokenLiteral:    "LITERAL",
	TokenSeparator:  "SEPARATOR",
	TokenComment:    "COMMENT",
	TokenWhitespace: "WHITESPACE",
	TokenUnknown:    "UNKNOWN",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

func (t TokenType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TokenType) UnmarshalText(text []byte) error {
	for k, name := range tokenTypeNames {
		if name == string(text) {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown token type %q", text)
}

// TokenTypes lists every token type in declaration order.
func TokenTypes() []TokenType {
	return []TokenType{
		TokenKeyword,
		TokenIdentifier,
		TokenOperator,
		TokenLiteral,
		TokenSeparator,
		TokenComment,
		TokenWhitespace,
		TokenUnknown,
	}
}

type Token struct {
	Type   TokenType `json:"type" msgpack:"type"`
	Value  string    `json:"value" msgpack:"value"`
	Line   int       `json:"line" msgpack:"line"`
	Column int       `json:"column" msgpack:"column"`
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q at %d:%d", t.Type, t.Value, t.Line, t.Column)
}

func (t Token) Is(typ TokenType, value string) bool {
	return t.Type == typ && t.Value == value
}

var keywords = map[string]bool{
	"abstract":     true,
	"assert":       true,
	"boolean":      true,
	"break":        true,
	"byte":         true,
	"case":         true,
	"catch":        true,
	"char":         true,
	"class":        true,
	"const":        true,
	"continue":     true,
	"default":      true,
	"do":           true,
	"double":       true,
	"else":         true,
	"enum":         true,
	"extends":      true,
	"final":        true,
	"finally":      true,
	"float":        true,
	"for":          true,
	"if":           true,
	"implements":   true,
	"import":       true,
	"instanceof":   true,
	"int":          true,
	"interface":    true,
	"long":         true,
	"native":       true,
	"new":          true,
	"package":      true,
	"private":      true,
	"protected":    true,
	"public":       true,
	"return":       true,
	"short":        true,
	"static":       true,
	"strictfp":     true,
	"super":        true,
	"switch":       true,
	"synchronized": true,
	"this":         true,
	"throw":        true,
	"throws":       true,
	"transient":    true,
	"try":          true,
	"void":         true,
	"volatile":     true,
	"while":        true,
}

// IsKeyword reports whether word is one of the reserved words the lexer
// classifies as TokenKeyword. The match is case-sensitive.
func IsKeyword(word string) bool {
	return keywords[word]
}

// Keywords returns the keyword set in alphabetical order.
func Keywords() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// operatorSet is the fixed operator list. "<<<" is not a Java operator
// but is part of the recognized set.
var operatorSet = []string{
	"+", "-", "*", "/", "%",
	"=", "+=", "-=", "*=", "/=", "%=",
	"++", "--",
	"==", "!=", ">", "<", ">=", "<=",
	"&&", "||", "!",
	"&", "|", "^", "~",
	"<<", ">>", ">>>", "<<<",
	"&=", "|=", "^=", "<<=", ">>=", ">>>=",
}

// operators holds operatorSet ordered longest first, so the first
// candidate matching at the cursor is the longest one.
var operators = sortedOperators()

func sortedOperators() []string {
	ops := make([]string, len(operatorSet))
	copy(ops, operatorSet)
	sort.SliceStable(ops, func(i, j int) bool {
		return len(ops[i]) > len(ops[j])
	})
	return ops
}

// Operators returns the operator set in match order (longest first).
func Operators() []string {
	ops := make([]string, len(operators))
	copy(ops, operators)
	return ops
}

const separators = "(){}[];,.:?@"

// Separators returns the single-character separator set.
func Separators() string {
	return separators
}

func isSeparator(ch rune) bool {
	for _, s := range separators {
		if s == ch {
			return true
		}
	}
	return false
}
