// Package controller provides the console front-ends for kcovmark.
package controller

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// UI defines how the workflow reports progress and results.
// Implementations can use different output methods (plain text, styled TUI).
type UI interface {
	// DisplayTarget prints a surviving candidate followed by its Makefile path.
	DisplayTarget(ctx context.Context, target m.Target)
	// DisplayAnnotation shows the outcome of a single annotation.
	DisplayAnnotation(ctx context.Context, annotation m.Annotation)
	// DisplayPlan renders the planned annotations without touching any file.
	DisplayPlan(ctx context.Context, targets []m.Target) error
	// DisplayBlacklist prints the reconstructed path of every entry.
	DisplayBlacklist(ctx context.Context, entries []m.BlacklistEntry)
	// DisplayOverlap lists targets the tree blacklists.
	DisplayOverlap(ctx context.Context, overlap []m.Path)
	// DisplayReport renders a previously saved report.
	DisplayReport(ctx context.Context, report m.Report) error
}

// NewUI picks the TUI for terminals and the plain UI otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
