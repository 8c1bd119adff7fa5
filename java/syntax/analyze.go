package syntax

import (
	"fmt"

	"github.com/tliron/commonlog"
)

type Result struct {
	Success     bool         `json:"success" msgpack:"success"`
	Tokens      []Token      `json:"tokens" msgpack:"tokens"`
	Outline     *Node        `json:"outline" msgpack:"outline"`
	Diagnostics []Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
}

// TokenCounts returns how many tokens of each type the result holds.
func (r Result) TokenCounts() map[TokenType]int {
	counts := make(map[TokenType]int)
	for _, tok := range r.Tokens {
		counts[tok.Type]++
	}
	return counts
}

func (r Result) Classes() int {
	return r.Outline.countOrZero(KindClass)
}

func (r Result) Methods() int {
	return r.Outline.countOrZero(KindMethod)
}

func (n *Node) countOrZero(kind NodeKind) int {
	if n == nil {
		return 0
	}
	return n.Count(kind)
}

type Analyzer struct {
	tokenize func(string) []Token
	check    func([]Token) CheckResult
	log      commonlog.Logger
}

type Option func(*Analyzer)

// WithTokenizer replaces the lexing stage.
func WithTokenizer(fn func(string) []Token) Option {
	return func(a *Analyzer) {
		a.tokenize = fn
	}
}

// WithChecker replaces the checking stage.
func WithChecker(fn func([]Token) CheckResult) Option {
	return func(a *Analyzer) {
		a.check = fn
	}
}

// WithLogger sets the logger faults are reported to. A nil logger keeps
// the default.
func WithLogger(log commonlog.Logger) Option {
	return func(a *Analyzer) {
		if log != nil {
			a.log = log
		}
	}
}

func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		tokenize: Tokenize,
		check:    Check,
		log:      commonlog.GetLogger("javasyn.syntax"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = NewAnalyzer()

// Analyze tokenizes and checks source using the default pipeline.
func Analyze(source string) Result {
	return defaultAnalyzer.Analyze(source)
}

// Analyze runs both stages over source. A panic in either stage is
// recovered and reported as a failed result carrying a single
// diagnostic at 0:0.
func (a *Analyzer) Analyze(source string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			msg := faultMessage(r)
			a.log.Error("analysis fault", "error", msg)
			result = Failed(msg)
		}
	}()

	tokens := a.tokenize(source)
	if tokens == nil {
		tokens = []Token{}
	}
	checked := a.check(tokens)
	diagnostics := checked.Diagnostics
	if diagnostics == nil {
		diagnostics = []Diagnostic{}
	}
	return Result{
		Success:     len(diagnostics) == 0,
		Tokens:      tokens,
		Outline:     checked.Outline,
		Diagnostics: diagnostics,
	}
}

// Failed builds the result reported when analysis itself could not
// complete.
func Failed(message string) Result {
	if message == "" {
		message = "unknown error occurred"
	}
	return Result{
		Success:     false,
		Tokens:      []Token{},
		Diagnostics: []Diagnostic{{Message: message}},
	}
}

func faultMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
