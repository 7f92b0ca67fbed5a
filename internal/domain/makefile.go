package domain

import (
	"errors"
	"fmt"
	"path"
	"strings"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// MakefileName is the file annotated in each target directory.
const MakefileName = "Makefile"

var (
	// ErrEmptyObjectName is returned when no object name can be derived from a path.
	ErrEmptyObjectName = errors.New("empty object name")
	// ErrInvalidDirMode is returned by ParseDirMode for an unknown mode.
	ErrInvalidDirMode = errors.New("invalid directory mode")
)

// DirMode selects how the Makefile directory is derived from a source path.
type DirMode string

const (
	// DirModeSegments uses every path segment but the last.
	DirModeSegments DirMode = "segments"
	// DirModeLegacy slices path[1:lastSlash], dropping the first character
	// of the path. "fs/read.c" maps to directory "s".
	DirModeLegacy DirMode = "legacy"
)

// ParseDirMode validates a configured directory mode.
func ParseDirMode(value string) (DirMode, error) {
	switch mode := DirMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "", DirModeSegments:
		return DirModeSegments, nil
	case DirModeLegacy:
		return DirModeLegacy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirMode, value)
	}
}

// PlanTarget derives the Makefile location and object name for source.
func PlanTarget(source m.Path, mode DirMode) (m.Target, error) {
	var dir, object string

	switch mode {
	case DirModeLegacy:
		dir, object = legacySplit(string(source))
	case DirModeSegments, "":
		dir, object = segmentSplit(string(source))
	default:
		return m.Target{}, fmt.Errorf("%w: %q", ErrInvalidDirMode, mode)
	}

	if object == "" {
		return m.Target{}, fmt.Errorf("%s: %w", source, ErrEmptyObjectName)
	}

	makefile := dir + "/" + MakefileName
	if mode != DirModeLegacy {
		makefile = path.Join(dir, MakefileName)
	}

	return m.Target{
		Source:   source,
		Dir:      m.Path(dir),
		Makefile: m.Path(makefile),
		Object:   object,
	}, nil
}

// PlanTargets plans every source in order and stops at the first error.
func PlanTargets(sources []m.Path, mode DirMode) ([]m.Target, error) {
	targets := make([]m.Target, 0, len(sources))

	for _, source := range sources {
		target, err := PlanTarget(source, mode)
		if err != nil {
			return nil, err
		}

		targets = append(targets, target)
	}

	return targets, nil
}

func segmentSplit(source string) (string, string) {
	dir, file := path.Split(source)
	dir = strings.TrimSuffix(dir, "/")

	if dir == "" {
		dir = "."
	}

	if i := strings.Index(file, "."); i >= 0 {
		file = file[:i]
	}

	return dir, file
}

func legacySplit(source string) (string, string) {
	lastSlash := strings.LastIndex(source, "/")
	firstDot := strings.Index(source, ".")

	return sliceIndex(source, 1, lastSlash), sliceIndex(source, lastSlash+1, firstDot)
}

// sliceIndex returns s[i:j] with negative indexes counted from the end and
// out-of-range or inverted bounds yielding a clamped or empty result.
func sliceIndex(s string, i, j int) string {
	n := len(s)

	clamp := func(k int) int {
		if k < 0 {
			k += n
		}

		return max(0, min(k, n))
	}

	i, j = clamp(i), clamp(j)
	if i >= j {
		return ""
	}

	return s[i:j]
}
