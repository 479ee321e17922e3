package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// readSourceFile loads sources from path, one per line. "-" reads from stdin.
func readSourceFile(path string, stdin io.Reader) ([]string, error) {
	if strings.TrimSpace(path) == "-" {
		return parseSourceList(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source list: %w", err)
	}
	defer f.Close()
	return parseSourceList(f)
}

// parseSourceList returns the non-blank lines of r. Lines starting with '#'
// are comments.
func parseSourceList(r io.Reader) ([]string, error) {
	var sources []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sources = append(sources, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read source list: %w", err)
	}
	return sources, nil
}
