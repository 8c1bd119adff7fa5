package main

import (
	"fmt"
	"io"
	"os"
)

// readSource reads the named file, or stdin when name is empty or "-".
// The returned display name is empty for stdin.
func (a *app) readSource(args []string) (name, source string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "", string(data), nil
	}

	name = args[0]
	data, err := os.ReadFile(name)
	if err != nil {
		return "", "", fmt.Errorf("read source: %w", err)
	}
	return name, string(data), nil
}
