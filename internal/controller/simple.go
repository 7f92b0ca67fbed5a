package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// SimpleUI implements UI using the cobra command's output stream. Its line
// output is stable and meant to be piped.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// DisplayTarget prints the source path and then the Makefile path.
func (s *SimpleUI) DisplayTarget(ctx context.Context, target m.Target) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n%s\n", target.Source, target.Makefile)
}

// DisplayAnnotation prints dry-run diffs and skipped targets.
func (s *SimpleUI) DisplayAnnotation(ctx context.Context, annotation m.Annotation) {
	if err := ctx.Err(); err != nil {
		return
	}

	switch annotation.Status {
	case m.Planned:
		if annotation.Diff != "" {
			s.printf("%s", annotation.Diff)
		}
	case m.AlreadyPresent:
		s.printf("skipped %s: %q already present\n", annotation.Makefile, annotation.Line)
	case m.Appended:
	}
}

// DisplayPlan renders the targets as a table.
func (s *SimpleUI) DisplayPlan(ctx context.Context, targets []m.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderPlanTable(targets))

	return nil
}

func renderPlanTable(targets []m.Target) string {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Source", "Makefile", "Directive"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, target := range targets {
		table.Append([]string{string(target.Source), string(target.Makefile), target.Directive()})
	}

	table.SetFooter([]string{fmt.Sprintf("Total Targets %d", len(targets)), "", ""})
	table.Render()

	return buf.String()
}

// DisplayBlacklist prints one reconstructed path per entry.
func (s *SimpleUI) DisplayBlacklist(ctx context.Context, entries []m.BlacklistEntry) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, entry := range entries {
		s.printf("%s\n", entry.SourcePath())
	}
}

// DisplayOverlap prints the targets the tree blacklists, if any.
func (s *SimpleUI) DisplayOverlap(ctx context.Context, overlap []m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	if len(overlap) == 0 {
		return
	}

	s.printf("blacklisted in tree (%d):\n", len(overlap))

	for _, path := range overlap {
		s.printf("  %s\n", path)
	}
}

// DisplayReport prints a saved report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, line := range reportLines(report) {
		s.printf("%s\n", line)
	}

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

// reportLines flattens a report into display lines shared by both UIs.
func reportLines(report m.Report) []string {
	lines := []string{
		fmt.Sprintf("root:       %s", report.Root),
		fmt.Sprintf("patch:      %s", report.Patch),
	}

	if report.PatchHash != "" {
		lines = append(lines, fmt.Sprintf("sha256:     %s", report.PatchHash))
	}

	if !report.StartedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("started:    %s", report.StartedAt.Format("2006-01-02 15:04:05")))
	}

	lines = append(lines,
		fmt.Sprintf("extracted:  %d", report.Extracted),
		fmt.Sprintf("candidates: %d", len(report.Candidates)),
		"",
		fmt.Sprintf("annotations (%d):", len(report.Annotations)),
	)

	for _, annotation := range report.Annotations {
		lines = append(lines, fmt.Sprintf("  [%s] %s -> %s", annotation.Status, annotation.Source, annotation.Makefile))
	}

	lines = append(lines, "", fmt.Sprintf("blacklist (%d):", len(report.Blacklist)))
	for _, entry := range report.Blacklist {
		lines = append(lines, fmt.Sprintf("  %s (%s:%d)", entry.SourcePath(), entry.File, entry.Line))
	}

	if len(report.Overlap) > 0 {
		lines = append(lines, "", fmt.Sprintf("blacklisted in tree (%d):", len(report.Overlap)))
		for _, path := range report.Overlap {
			lines = append(lines, "  "+string(path))
		}
	}

	return lines
}
