// Package lsp serves syntax diagnostics and a class/method outline to
// editors over the Language Server Protocol.
package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "javasyn"

type document struct {
	text   string
	result syntax.Result
}

type Server struct {
	mu        sync.Mutex
	documents map[protocol.DocumentUri]document
	handler   protocol.Handler
	server    *server.Server
	version   string
	log       commonlog.Logger
}

func NewServer(version string) *Server {
	ls := &Server{
		documents: make(map[protocol.DocumentUri]document),
		version:   version,
		log:       commonlog.GetLogger("javasyn.lsp"),
	}

	ls.handler = protocol.Handler{
		Initialize:                 ls.initialize,
		Initialized:                ls.initialized,
		Shutdown:                   ls.shutdown,
		SetTrace:                   ls.setTrace,
		TextDocumentDidOpen:        ls.textDocumentDidOpen,
		TextDocumentDidChange:      ls.textDocumentDidChange,
		TextDocumentDidClose:       ls.textDocumentDidClose,
		TextDocumentDidSave:        ls.textDocumentDidSave,
		TextDocumentDocumentSymbol: ls.textDocumentDocumentSymbol,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	ls.log.Info("client initialized")
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	ls.Update(ctx.Notify, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	if textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
		ls.Update(ctx.Notify, params.TextDocument.URI, textChange.Text)
	}
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if params.Text != nil {
		ls.Update(ctx.Notify, params.TextDocument.URI, *params.Text)
	}
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.Close(ctx.Notify, params.TextDocument.URI)
	return nil
}

func (ls *Server) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	return ls.Symbols(params.TextDocument.URI), nil
}

// Update stores text as the content of uri, analyzes it and publishes
// the resulting diagnostics.
func (ls *Server) Update(notify glsp.NotifyFunc, uri protocol.DocumentUri, text string) {
	result := metrics.Analyze(metrics.SurfaceLSP, text)

	ls.mu.Lock()
	ls.documents[uri] = document{text: text, result: result}
	ls.mu.Unlock()

	ls.log.Debugf("analyzed %s: %d diagnostics", displayPath(string(uri)), len(result.Diagnostics))
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: Diagnostics(text, result.Diagnostics),
	})
}

// Close forgets uri and clears its diagnostics in the client.
func (ls *Server) Close(notify glsp.NotifyFunc, uri protocol.DocumentUri) {
	ls.mu.Lock()
	delete(ls.documents, uri)
	ls.mu.Unlock()

	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// Symbols returns the outline of an open document, or nil when the
// document is unknown or has no outline.
func (ls *Server) Symbols(uri protocol.DocumentUri) []protocol.DocumentSymbol {
	ls.mu.Lock()
	doc, ok := ls.documents[uri]
	ls.mu.Unlock()
	if !ok || doc.result.Outline == nil {
		return nil
	}
	return DocumentSymbols(doc.text, doc.result.Outline)
}

// Diagnostics converts syntax diagnostics into LSP diagnostics. Each
// range covers the character at the reported position, or is empty at
// the end of a line.
func Diagnostics(text string, diags []syntax.Diagnostic) []protocol.Diagnostic {
	lines := splitLines(text)
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		start := lines.position(d.Line, d.Column)
		end := start
		if d.Line >= 1 && d.Line <= len(lines) && d.Column <= utf8.RuneCountInString(lines[d.Line-1]) {
			end = lines.position(d.Line, d.Column+1)
		}
		out = append(out, protocol.Diagnostic{
			Range:    protocol.Range{Start: start, End: end},
			Severity: severityPtr(protocol.DiagnosticSeverityError),
			Source:   strPtr(lsName),
			Message:  d.Message,
		})
	}
	return out
}

// Position converts a 1-based line and column into a 0-based LSP
// position. Values that do not fit clamp to zero.
func Position(line, column int) protocol.Position {
	return protocol.Position{
		Line:      toUInteger(line - 1),
		Character: toUInteger(column - 1),
	}
}

// lines holds the text of a document split at newlines.
type lines []string

func splitLines(text string) lines {
	return strings.Split(text, "\n")
}

// position converts a 1-based line and rune column into an LSP position
// whose character offset counts UTF-16 code units.
func (ls lines) position(line, column int) protocol.Position {
	pos := Position(line, column)
	if line >= 1 && line <= len(ls) {
		pos.Character = toUInteger(utf16Offset(ls[line-1], column-1))
	}
	return pos
}

// utf16Offset returns the UTF-16 length of the first n runes of s. Runes
// past the end of s count as one unit each.
func utf16Offset(s string, n int) int {
	units := 0
	for _, r := range s {
		if n <= 0 {
			return units
		}
		if l := utf16.RuneLen(r); l > 0 {
			units += l
		} else {
			units++
		}
		n--
	}
	if n > 0 {
		units += n
	}
	return units
}

func toUInteger(n int) protocol.UInteger {
	v, err := safecast.Conv[protocol.UInteger](n)
	if err != nil {
		return 0
	}
	return v
}

// DocumentSymbols maps the outline's classes and their methods to nested
// document symbols. text is the analyzed source, used to express
// positions in UTF-16 code units.
func DocumentSymbols(text string, root *syntax.Node) []protocol.DocumentSymbol {
	lines := splitLines(text)
	symbols := []protocol.DocumentSymbol{}
	for _, class := range root.Children {
		sym := lines.symbol(class, protocol.SymbolKindClass)
		sym.Children = []protocol.DocumentSymbol{}
		for _, method := range class.Children {
			child := lines.symbol(method, protocol.SymbolKindMethod)
			if method.ReturnType != "" {
				child.Detail = strPtr(method.ReturnType)
			}
			sym.Children = append(sym.Children, child)
		}
		symbols = append(symbols, sym)
	}
	return symbols
}

func (ls lines) symbol(n *syntax.Node, kind protocol.SymbolKind) protocol.DocumentSymbol {
	start := ls.position(n.Line, n.Column)
	end := ls.position(n.Line, n.Column+utf8.RuneCountInString(n.Name))
	r := protocol.Range{Start: start, End: end}
	return protocol.DocumentSymbol{
		Name:           n.Name,
		Kind:           kind,
		Range:          r,
		SelectionRange: r,
	}
}

func displayPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if parsed, err := url.Parse(uri); err == nil {
			return filepath.Clean(parsed.Path)
		}
	}
	return uri
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}

func severityPtr(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}
