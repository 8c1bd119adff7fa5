package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/dhamidi/javasyn/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stdout: &out}
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetOut(&out)
	err := cmd.Execute()
	return out.String(), err
}

func writeJava(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeStdin(t *testing.T) {
	out, err := run(t, "class A { public void run() { return; } }", "analyze")
	require.NoError(t, err)
	assert.Equal(t, "<stdin>: ok (13 tokens, 0 errors, 1 classes, 1 methods)\n", out)
}

func TestAnalyzeFileWithDiagnostics(t *testing.T) {
	path := writeJava(t, t.TempDir(), "B.java", "class B {\n  return x\n")
	out, err := run(t, "", "analyze", path)
	assert.ErrorIs(t, err, errDiagnostics)
	assert.Contains(t, out, path+":2:9: Missing semicolon after 'return' statement")
	assert.Contains(t, out, path+":1:9: Unclosed bracket '{'")

	_, err = run(t, "", "analyze", "--fail=false", path)
	assert.NoError(t, err)
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := run(t, "int x;", "analyze", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, `"outline": {`)
}

func TestAnalyzeUnknownFormat(t *testing.T) {
	_, err := run(t, "", "analyze", "--format", "yaml")
	assert.EqualError(t, err, "unknown format: yaml")
}

func TestAnalyzeConfigFormat(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "javasyn.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[output]\nformat = \"json\"\n"), 0o644))

	out, err := run(t, "int x;", "--config", cfgPath, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, `"summary": {`)

	out, err = run(t, "int x;", "--config", cfgPath, "analyze", "--format", "text")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<stdin>: ok"))

	_, err = run(t, "", "--config", filepath.Join(dir, "missing.toml"), "version")
	assert.Error(t, err)
}

func TestTokensAndOutline(t *testing.T) {
	out, err := run(t, "class Foo { public void bar() {} }", "tokens")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 11)
	assert.Equal(t, []string{"1:1", "KEYWORD", "class"}, strings.Fields(lines[1]))

	out, err = run(t, "class Foo { public void bar() {} }", "outline")
	require.NoError(t, err)
	assert.Equal(t, "Program\n  class Foo\n    void bar()\n", out)
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeJava(t, dir, "Good.java", "class Good {}")
	writeJava(t, dir, "Bad.java", "class Bad {")

	out, err := run(t, "", "scan", dir)
	assert.ErrorIs(t, err, errDiagnostics)
	assert.Contains(t, out, "Bad.java: FAILED")
	assert.Contains(t, out, "Good.java: ok")
	assert.Contains(t, out, "Scanned 2 files: 1 with errors")

	out, err = run(t, "", "scan", "--exclude", "Bad.java", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned 1 files: 0 with errors")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "javasyn "+version+"\n", out)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestPrintEvents(t *testing.T) {
	events := []watch.Event{
		{Path: "A.java", Result: syntax.Analyze("class A {")},
		{Path: "B.java", Removed: true},
	}

	var out bytes.Buffer
	require.NoError(t, printEvents(&out, format.NewTextEncoder(&out, format.WithColor(false)), events))
	assert.Contains(t, out.String(), "A.java:1:9: Unclosed bracket '{'")
	assert.Contains(t, out.String(), "B.java: removed\n")

	err := printEvents(brokenWriter{}, format.NewTextEncoder(brokenWriter{}), events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A.java: disk full")
	assert.Contains(t, err.Error(), "B.java: disk full")
}
