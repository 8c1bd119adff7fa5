package format

import (
	"encoding"
	"fmt"
	"io"

	"github.com/dhamidi/javasyn/java/syntax"
)

// Document is one analyzed source. File is empty for anonymous input.
type Document struct {
	File   string
	Result syntax.Result
}

type Encoder interface {
	encoding.TextMarshaler
	Encode(doc Document) error
}

// New returns the encoder registered under name ("text", "json" or
// "msgpack").
func New(name string, w io.Writer, color bool) (Encoder, error) {
	switch name {
	case "text":
		return NewTextEncoder(w, WithColor(color)), nil
	case "json":
		return NewJSONEncoder(w), nil
	case "msgpack":
		return NewMsgpackEncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown format: %s", name)
	}
}

// report mirrors a Document for the structured encoders.
type report struct {
	File        string       `json:"file,omitempty" msgpack:"file,omitempty"`
	Success     bool         `json:"success" msgpack:"success"`
	Summary     summary      `json:"summary" msgpack:"summary"`
	Tokens      []token      `json:"tokens" msgpack:"tokens"`
	Outline     *node        `json:"outline" msgpack:"outline"`
	Diagnostics []diagnostic `json:"diagnostics" msgpack:"diagnostics"`
}

type summary struct {
	Tokens  int `json:"tokens" msgpack:"tokens"`
	Errors  int `json:"errors" msgpack:"errors"`
	Classes int `json:"classes" msgpack:"classes"`
	Methods int `json:"methods" msgpack:"methods"`
}

type token struct {
	Type   string `json:"type" msgpack:"type"`
	Value  string `json:"value" msgpack:"value"`
	Line   int    `json:"line" msgpack:"line"`
	Column int    `json:"column" msgpack:"column"`
}

type node struct {
	Type       string  `json:"type" msgpack:"type"`
	Path       string  `json:"path" msgpack:"path"`
	Name       string  `json:"name,omitempty" msgpack:"name,omitempty"`
	ReturnType string  `json:"returnType,omitempty" msgpack:"returnType,omitempty"`
	Children   []*node `json:"children,omitempty" msgpack:"children,omitempty"`
}

type diagnostic struct {
	Message string `json:"message" msgpack:"message"`
	Line    int    `json:"line" msgpack:"line"`
	Column  int    `json:"column" msgpack:"column"`
}

func buildReport(doc Document) report {
	r := doc.Result
	rep := report{
		File:    doc.File,
		Success: r.Success,
		Summary: summary{
			Tokens:  len(r.Tokens),
			Errors:  len(r.Diagnostics),
			Classes: r.Classes(),
			Methods: r.Methods(),
		},
		Tokens:      make([]token, len(r.Tokens)),
		Outline:     nodeToReport(r.Outline, nil),
		Diagnostics: make([]diagnostic, len(r.Diagnostics)),
	}
	for i, t := range r.Tokens {
		rep.Tokens[i] = token{Type: t.Type.String(), Value: t.Value, Line: t.Line, Column: t.Column}
	}
	for i, d := range r.Diagnostics {
		rep.Diagnostics[i] = diagnostic{Message: d.Message, Line: d.Line, Column: d.Column}
	}
	return rep
}

func nodeToReport(n *syntax.Node, path syntax.Path) *node {
	if n == nil {
		return nil
	}
	rn := &node{
		Type:       n.Kind.String(),
		Path:       path.String(),
		Name:       n.Name,
		ReturnType: n.ReturnType,
	}
	if len(n.Children) > 0 {
		rn.Children = make([]*node, len(n.Children))
		for i, child := range n.Children {
			childPath := append(append(syntax.Path{}, path...), i)
			rn.Children[i] = nodeToReport(child, childPath)
		}
	}
	return rn
}
