package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// AnnotateOptions configures an annotation pass.
type AnnotateOptions struct {
	// DryRun computes a diff per target instead of writing.
	DryRun bool
	// SkipExisting leaves a Makefile alone when it already holds the exact
	// directive line. Off by default: re-running appends duplicates.
	SkipExisting bool
	// BeforeTarget is called for each target before its Makefile is touched.
	BeforeTarget func(m.Target)
	// AfterTarget is called with each completed annotation.
	AfterTarget func(m.Annotation)
}

// Annotator appends instrumentation directives to Makefiles.
type Annotator interface {
	Annotate(ctx context.Context, root m.Path, targets []m.Target, opts AnnotateOptions) ([]m.Annotation, error)
}

type annotator struct {
	fsAdapter adapter.SourceFSAdapter
}

// NewAnnotator constructs an Annotator writing through fsAdapter.
func NewAnnotator(fsAdapter adapter.SourceFSAdapter) Annotator {
	return &annotator{fsAdapter: fsAdapter}
}

// Annotate processes targets in order. Makefiles written before a failure
// stay written; the returned slice holds the annotations completed so far.
func (a *annotator) Annotate(ctx context.Context, root m.Path, targets []m.Target, opts AnnotateOptions) ([]m.Annotation, error) {
	annotations := make([]m.Annotation, 0, len(targets))
	contents := make(map[m.Path]string)
	written := 0

	record := func(annotation m.Annotation) {
		annotations = append(annotations, annotation)
		if opts.AfterTarget != nil {
			opts.AfterTarget(annotation)
		}
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return annotations, err
		}

		if opts.BeforeTarget != nil {
			opts.BeforeTarget(target)
		}

		makefile := a.fsAdapter.JoinPath(string(root), string(target.Makefile))
		line := target.Directive()
		annotation := m.Annotation{Source: target.Source, Makefile: target.Makefile, Line: line}

		var current string

		if opts.DryRun || opts.SkipExisting {
			content, err := a.loadContent(contents, makefile)
			if err != nil {
				return annotations, err
			}

			current = content
		}

		if opts.SkipExisting && hasLine(current, line) {
			slog.Info("directive already present", "makefile", makefile, "line", line)

			annotation.Status = m.AlreadyPresent
			record(annotation)

			continue
		}

		updated := current + line + "\n"

		if opts.DryRun {
			annotation.Status = m.Planned
			annotation.Diff = unifiedDiff(string(target.Makefile), current, updated)
			contents[makefile] = updated
			record(annotation)

			continue
		}

		if err := a.fsAdapter.AppendFile(makefile, []byte(line+"\n")); err != nil {
			slog.Error("Failed to append directive", "makefile", makefile, "error", err)
			return annotations, fmt.Errorf("append to %s (%d of %d Makefiles written): %w", makefile, written, len(targets), err)
		}

		written++

		if opts.SkipExisting {
			contents[makefile] = updated
		}

		slog.Debug("appended directive", "makefile", makefile, "line", line)

		annotation.Status = m.Appended
		record(annotation)
	}

	return annotations, nil
}

func (a *annotator) loadContent(cache map[m.Path]string, makefile m.Path) (string, error) {
	if content, ok := cache[makefile]; ok {
		return content, nil
	}

	data, err := a.fsAdapter.ReadFile(makefile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", makefile, err)
	}

	cache[makefile] = string(data)

	return string(data), nil
}

func hasLine(content, line string) bool {
	for _, existing := range strings.Split(content, "\n") {
		if strings.TrimSpace(existing) == line {
			return true
		}
	}

	return false
}

func unifiedDiff(name, before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	})
	if err != nil {
		return ""
	}

	return diff
}
