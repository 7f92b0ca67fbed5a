package domain

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

const (
	diffMarker    = "diff"
	oldPathMarker = "a/"
	newPathMarker = " b/"
	gitDiffPrefix = "diff --git "

	// maxPatchLine bounds a single patch line; kernel patches carry long
	// hunk lines but nothing close to this.
	maxPatchLine = 4 * 1024 * 1024
)

// ParseOptions controls how diff headers are recognized.
type ParseOptions struct {
	// StrictHeaders only accepts lines starting with "diff --git ". When
	// false any line containing "diff" is inspected.
	StrictHeaders bool
}

// ExtractPath returns the path between the "a/" and " b/" markers of a diff
// header. It reports false when the line is not a header or a marker is
// missing or out of order.
func ExtractPath(line string, opts ParseOptions) (m.Path, bool) {
	if opts.StrictHeaders {
		if !strings.HasPrefix(line, gitDiffPrefix) {
			return "", false
		}
	} else if !strings.Contains(line, diffMarker) {
		return "", false
	}

	start := strings.Index(line, oldPathMarker)
	if start < 0 {
		return "", false
	}

	start += len(oldPathMarker)

	end := strings.Index(line[start:], newPathMarker)
	if end < 0 {
		return "", false
	}

	path := line[start : start+end]
	if path == "" {
		return "", false
	}

	return m.Path(path), true
}

// ParsePatch scans a patch line by line and returns every path found in a
// diff header, in order of appearance. Duplicates are preserved.
func ParsePatch(r io.Reader, opts ParseOptions) ([]m.Path, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPatchLine)

	var (
		paths  []m.Path
		lineNo int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		path, ok := ExtractPath(line, opts)
		if !ok {
			if strings.HasPrefix(line, diffMarker) {
				slog.Debug("skipping diff line without path markers", "line", lineNo)
			}

			continue
		}

		paths = append(paths, path)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read patch at line %d: %w", lineNo+1, err)
	}

	return paths, nil
}
