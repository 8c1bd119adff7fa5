// Package syntax provides a best-effort tokenizer and shallow checker for
// Java-like source text.
//
// # Overview
//
// Analysis is a two stage pipeline over a complete source string:
//
//	┌─────────────┐     ┌─────────────┐     ┌──────────────────┐
//	│   Source    │────▶│  Tokenize   │────▶│      Check       │
//	│  (string)   │     │  ([]Token)  │     │ (diags, outline) │
//	└─────────────┘     └─────────────┘     └──────────────────┘
//
// Tokenize works line by line and classifies every non-whitespace
// character as part of a keyword, identifier, operator, literal,
// separator, comment or unknown token. It never fails.
//
// Check is not a grammar. It scans the flat token sequence for three
// things:
//
//   - bracket nesting of (), {} and [], using an explicit stack
//   - return, break and continue not directly followed by ';'
//   - "class Name" declarations and "modifier Type name(" methods, which
//     form a shallow outline
//
// # Limitations
//
// Block comments and string literals must open and close on the same
// line. The outline attributes methods to the most recently declared
// class, so nested and multiple classes are approximated. Both are part
// of the observable behavior and are kept as is.
//
// # Example Usage
//
//	result := syntax.Analyze("class Foo { public void bar() {} }")
//	for _, d := range result.Diagnostics {
//	    fmt.Printf("%d:%d: %s\n", d.Line, d.Column, d.Message)
//	}
//	fmt.Print(result.Outline)
//
// # Thread Safety
//
// Analyze, Tokenize and Check keep no state between calls and may be used
// concurrently.
package syntax
