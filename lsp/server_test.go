package lsp

import (
	"testing"

	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type notification struct {
	method string
	params protocol.PublishDiagnosticsParams
}

type recorder struct {
	sent []notification
}

func (r *recorder) notify(method string, params any) {
	r.sent = append(r.sent, notification{method: method, params: params.(protocol.PublishDiagnosticsParams)})
}

func TestPosition(t *testing.T) {
	tests := []struct {
		line, column int
		want         protocol.Position
	}{
		{1, 1, protocol.Position{Line: 0, Character: 0}},
		{3, 12, protocol.Position{Line: 2, Character: 11}},
		{0, 0, protocol.Position{Line: 0, Character: 0}},
		{-4, -1, protocol.Position{Line: 0, Character: 0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Position(tt.line, tt.column), "%d:%d", tt.line, tt.column)
	}
}

func TestDiagnostics(t *testing.T) {
	text := "class A {\n  return\n  return x"
	result := syntax.Analyze(text)
	got := Diagnostics(text, result.Diagnostics)
	require.Len(t, got, 3)

	assert.Equal(t, "Missing semicolon after 'return' statement", got[0].Message)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 8},
		End:   protocol.Position{Line: 1, Character: 8},
	}, got[0].Range, "past the end of the line the range is empty")

	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 2, Character: 8},
		End:   protocol.Position{Line: 2, Character: 9},
	}, got[1].Range)

	assert.Equal(t, "Unclosed bracket '{'", got[2].Message)
	assert.Equal(t, protocol.Position{Line: 0, Character: 8}, got[2].Range.Start)

	require.NotNil(t, got[0].Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *got[0].Severity)
	require.NotNil(t, got[0].Source)
	assert.Equal(t, "javasyn", *got[0].Source)
}

func TestDiagnosticsFault(t *testing.T) {
	got := Diagnostics("", syntax.Failed("boom").Diagnostics)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.Range{}, got[0].Range)
	assert.Equal(t, "boom", got[0].Message)
}

func TestDiagnosticsCountUTF16Units(t *testing.T) {
	text := "class A {\n  \"😀\" return x\n}"
	got := Diagnostics(text, syntax.Analyze(text).Diagnostics)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 13},
		End:   protocol.Position{Line: 1, Character: 14},
	}, got[0].Range, "the emoji before the diagnostic spans two UTF-16 units")
}

func TestDocumentSymbolsCountUTF16Units(t *testing.T) {
	text := "/* 😀😀 */ class Foo { void run() {} }"
	symbols := DocumentSymbols(text, syntax.Analyze(text).Outline)
	require.Len(t, symbols, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 17},
		End:   protocol.Position{Line: 0, Character: 20},
	}, symbols[0].Range)
	require.Len(t, symbols[0].Children, 1)
	assert.Equal(t, protocol.Position{Line: 0, Character: 28}, symbols[0].Children[0].Range.Start)
}

func TestUTF16Offset(t *testing.T) {
	tests := []struct {
		s    string
		n    int
		want int
	}{
		{"abc", 2, 2},
		{"été", 3, 3},
		{"😀x", 1, 2},
		{"😀x", 2, 3},
		{"ab", 5, 5},
		{"ab", -1, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, utf16Offset(tt.s, tt.n), "%q %d", tt.s, tt.n)
	}
}

func TestDocumentSymbols(t *testing.T) {
	text := "class Foo {\n  public void bar() {}\n  private int baz() {}\n}\nclass Empty {}"
	result := syntax.Analyze(text)
	symbols := DocumentSymbols(text, result.Outline)
	require.Len(t, symbols, 2)

	foo := symbols[0]
	assert.Equal(t, "Foo", foo.Name)
	assert.Equal(t, protocol.SymbolKindClass, foo.Kind)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 6},
		End:   protocol.Position{Line: 0, Character: 9},
	}, foo.Range)

	require.Len(t, foo.Children, 2)
	bar := foo.Children[0]
	assert.Equal(t, "bar", bar.Name)
	assert.Equal(t, protocol.SymbolKindMethod, bar.Kind)
	require.NotNil(t, bar.Detail)
	assert.Equal(t, "void", *bar.Detail)
	assert.Equal(t, protocol.Position{Line: 1, Character: 14}, bar.SelectionRange.Start)

	assert.Equal(t, "Empty", symbols[1].Name)
	assert.Empty(t, symbols[1].Children)
}

func TestServerDocumentLifecycle(t *testing.T) {
	ls := NewServer("test")
	rec := &recorder{}
	uri := protocol.DocumentUri("file:///tmp/Foo.java")

	ls.Update(rec.notify, uri, "class Foo { public void bar() { return x } }")
	require.Len(t, rec.sent, 1)
	assert.Equal(t, protocol.ServerTextDocumentPublishDiagnostics, rec.sent[0].method)
	assert.Equal(t, uri, rec.sent[0].params.URI)
	assert.Len(t, rec.sent[0].params.Diagnostics, 1)

	symbols := ls.Symbols(uri)
	require.Len(t, symbols, 1)
	assert.Equal(t, "bar", symbols[0].Children[0].Name)

	ls.Update(rec.notify, uri, "class Foo { public void bar() { return; } }")
	require.Len(t, rec.sent, 2)
	assert.Empty(t, rec.sent[1].params.Diagnostics)

	ls.Close(rec.notify, uri)
	require.Len(t, rec.sent, 3)
	assert.NotNil(t, rec.sent[2].params.Diagnostics)
	assert.Empty(t, rec.sent[2].params.Diagnostics)
	assert.Nil(t, ls.Symbols(uri))
}
