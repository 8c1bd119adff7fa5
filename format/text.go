package format

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/fatih/color"
)

// maxSummaryErrors is how many diagnostics the summary section lists
// before collapsing the rest into a count.
const maxSummaryErrors = 3

type TextEncoder struct {
	w       io.Writer
	doc     Document
	summary bool

	ok    *color.Color
	fail  *color.Color
	pos   *color.Color
	faint *color.Color
}

type TextOption func(*TextEncoder)

func WithColor(enabled bool) TextOption {
	return func(e *TextEncoder) {
		for _, c := range []*color.Color{e.ok, e.fail, e.pos, e.faint} {
			if enabled {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// WithSummary limits the diagnostic list to the first few entries
// followed by a count of the remainder.
func WithSummary() TextOption {
	return func(e *TextEncoder) {
		e.summary = true
	}
}

func NewTextEncoder(w io.Writer, opts ...TextOption) *TextEncoder {
	e := &TextEncoder{
		w:     w,
		ok:    color.New(color.FgGreen, color.Bold),
		fail:  color.New(color.FgRed, color.Bold),
		pos:   color.New(color.FgCyan),
		faint: color.New(color.Faint),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *TextEncoder) Encode(doc Document) error {
	e.doc = doc
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

// MarshalText renders a status line followed by one line per diagnostic
// in file:line:column form.
func (e *TextEncoder) MarshalText() ([]byte, error) {
	var buf bytes.Buffer
	r := e.doc.Result
	name := e.doc.File
	if name == "" {
		name = "<stdin>"
	}

	status := e.ok.Sprint("ok")
	if !r.Success {
		status = e.fail.Sprint("FAILED")
	}
	fmt.Fprintf(&buf, "%s: %s %s\n", name, status, e.faint.Sprintf("(%d tokens, %d errors, %d classes, %d methods)",
		len(r.Tokens), len(r.Diagnostics), r.Classes(), r.Methods()))

	diags := r.Diagnostics
	if e.summary && len(diags) > maxSummaryErrors {
		diags = diags[:maxSummaryErrors]
	}
	for _, d := range diags {
		fmt.Fprintf(&buf, "%s: %s\n", e.pos.Sprintf("%s:%d:%d", name, d.Line, d.Column), d.Message)
	}
	if rest := len(r.Diagnostics) - len(diags); rest > 0 {
		fmt.Fprintf(&buf, "%s\n", e.faint.Sprintf("And %d more errors...", rest))
	}
	return buf.Bytes(), nil
}

// WriteTokens writes a token table with one row per token.
func WriteTokens(w io.Writer, tokens []syntax.Token) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tTYPE\tVALUE")
	for _, t := range tokens {
		fmt.Fprintf(tw, "%d:%d\t%s\t%s\n", t.Line, t.Column, t.Type, t.Value)
	}
	return tw.Flush()
}

// WriteOutline writes the outline as an indented tree.
func WriteOutline(w io.Writer, root *syntax.Node) error {
	if root == nil {
		_, err := fmt.Fprintln(w, "(no outline)")
		return err
	}
	var sb strings.Builder
	root.Walk(func(path syntax.Path, n *syntax.Node) bool {
		indent := strings.Repeat("  ", len(path))
		switch n.Kind {
		case syntax.KindProgram:
			sb.WriteString("Program\n")
		case syntax.KindClass:
			fmt.Fprintf(&sb, "%sclass %s\n", indent, n.Name)
		case syntax.KindMethod:
			if n.ReturnType != "" {
				fmt.Fprintf(&sb, "%s%s %s()\n", indent, n.ReturnType, n.Name)
			} else {
				fmt.Fprintf(&sb, "%s%s()\n", indent, n.Name)
			}
		}
		return true
	})
	_, err := io.WriteString(w, sb.String())
	return err
}
