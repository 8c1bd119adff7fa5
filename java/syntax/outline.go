package syntax

import (
	"strconv"
	"strings"
)

type NodeKind int

const (
	KindProgram NodeKind = iota
	KindClass
	KindMethod
)

var nodeKindNames = map[NodeKind]string{
	KindProgram: "Program",
	KindClass:   "ClassDeclaration",
	KindMethod:  "MethodDeclaration",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is an outline tree node. A Program holds classes, a class holds
// methods; methods have no children. ReturnType is only set on methods
// and may be empty. Line and Column locate the name token and are zero
// on the root.
type Node struct {
	Kind       NodeKind `json:"type" msgpack:"type"`
	Name       string   `json:"name,omitempty" msgpack:"name,omitempty"`
	ReturnType string   `json:"returnType,omitempty" msgpack:"returnType,omitempty"`
	Children   []*Node  `json:"children" msgpack:"children"`
	Line       int      `json:"-" msgpack:"-"`
	Column     int      `json:"-" msgpack:"-"`
}

func NewProgram() *Node {
	return &Node{Kind: KindProgram, Children: []*Node{}}
}

func NewClass(name string) *Node {
	return &Node{Kind: KindClass, Name: name, Children: []*Node{}}
}

func NewMethod(name, returnType string) *Node {
	return &Node{Kind: KindMethod, Name: name, ReturnType: returnType, Children: []*Node{}}
}

// Path identifies a node by the child indexes leading to it from the
// root. The root has the empty path.
type Path []int

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func (n *Node) Walk(fn func(path Path, node *Node) bool) {
	if n == nil {
		return
	}
	n.walk(nil, fn)
}

func (n *Node) walk(path Path, fn func(Path, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for i, child := range n.Children {
		childPath := make(Path, len(path)+1)
		copy(childPath, path)
		childPath[len(path)] = i
		child.walk(childPath, fn)
	}
}

// Count returns the number of nodes of the given kind in the tree.
func (n *Node) Count(kind NodeKind) int {
	count := 0
	n.Walk(func(_ Path, node *Node) bool {
		if node.Kind == kind {
			count++
		}
		return true
	})
	return count
}

func (n *Node) String() string {
	var sb strings.Builder
	n.Walk(func(path Path, node *Node) bool {
		sb.WriteString(strings.Repeat("  ", len(path)))
		sb.WriteString(node.Kind.String())
		if node.Name != "" {
			sb.WriteString(" ")
			sb.WriteString(node.Name)
		}
		if node.ReturnType != "" {
			sb.WriteString(" : ")
			sb.WriteString(node.ReturnType)
		}
		sb.WriteString("\n")
		return true
	})
	return sb.String()
}

// buildOutline recognizes class declarations and the methods that follow
// them. Only the most recently opened class receives methods.
func buildOutline(tokens []Token) *Node {
	root := NewProgram()
	var current *Node
	ahead := newLookahead(tokens)

	for i, tok := range tokens {
		if tok.Is(TokenKeyword, "class") && i+1 < len(tokens) && tokens[i+1].Type == TokenIdentifier {
			current = NewClass(tokens[i+1].Value)
			current.Line, current.Column = tokens[i+1].Line, tokens[i+1].Column
			root.Children = append(root.Children, current)
		}

		if current != nil && tok.Type == TokenKeyword && isAccessModifier(tok.Value) {
			if method := ahead.methodAt(i); method != nil {
				current.Children = append(current.Children, method)
			}
		}
	}
	return root
}

func isAccessModifier(word string) bool {
	return word == "public" || word == "private" || word == "protected"
}

// lookahead indexes, for every position j, the first word (identifier or
// keyword) and the first identifier at or after j. Entries past the last
// match hold len(tokens).
type lookahead struct {
	tokens    []Token
	nextWord  []int
	nextIdent []int
}

func newLookahead(tokens []Token) *lookahead {
	n := len(tokens)
	la := &lookahead{
		tokens:    tokens,
		nextWord:  make([]int, n+1),
		nextIdent: make([]int, n+1),
	}
	la.nextWord[n], la.nextIdent[n] = n, n
	for j := n - 1; j >= 0; j-- {
		la.nextWord[j], la.nextIdent[j] = la.nextWord[j+1], la.nextIdent[j+1]
		switch tokens[j].Type {
		case TokenIdentifier:
			la.nextWord[j], la.nextIdent[j] = j, j
		case TokenKeyword:
			la.nextWord[j] = j
		}
	}
	return la
}

func (la *lookahead) wordFrom(j int) int {
	if j >= len(la.tokens) {
		return len(la.tokens)
	}
	return la.nextWord[j]
}

func (la *lookahead) identFrom(j int) int {
	if j >= len(la.tokens) {
		return len(la.tokens)
	}
	return la.nextIdent[j]
}

// methodAt looks ahead of the modifier at index i for a return type (the
// first identifier or keyword) and a method name (the next identifier)
// followed by "(". It does not advance the caller's scan.
func (la *lookahead) methodAt(i int) *Node {
	tokens := la.tokens
	rt := la.wordFrom(i + 1)
	if rt >= len(tokens) {
		return nil
	}
	name := la.identFrom(rt + 1)
	if name+1 >= len(tokens) {
		return nil
	}
	if !tokens[name+1].Is(TokenSeparator, "(") {
		return nil
	}
	method := NewMethod(tokens[name].Value, tokens[rt].Value)
	method.Line, method.Column = tokens[name].Line, tokens[name].Column
	return method
}
