// Package domain implements the kcovmark pipeline: patch parsing, candidate
// filtering, Makefile annotation and blacklist collection.
package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	"kcovmark.dev/pkg/kcovmark/internal/controller"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// PlanArgs selects the patch and the rules used to derive targets.
type PlanArgs struct {
	Root    m.Path
	Patch   m.Path // relative paths are resolved against Root
	Parse   ParseOptions
	Filter  FilterOptions
	DirMode DirMode
}

// AnnotateArgs contains the arguments for writing directives.
type AnnotateArgs struct {
	PlanArgs
	DryRun       bool
	SkipExisting bool
}

// BlacklistArgs contains the arguments for collecting existing markers.
type BlacklistArgs struct {
	Root          m.Path
	BlacklistFile string // relative to Root
}

// RunArgs contains the arguments for the full pipeline.
type RunArgs struct {
	AnnotateArgs
	BlacklistFile string
	Reports       m.Path
}

// ViewArgs contains the arguments for showing a saved report.
type ViewArgs struct {
	Reports m.Path
}

// Workflow is the entry point used by the CLI commands.
type Workflow interface {
	List(ctx context.Context, args PlanArgs) error
	Annotate(ctx context.Context, args AnnotateArgs) error
	Blacklist(ctx context.Context, args BlacklistArgs) error
	Run(ctx context.Context, args RunArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.ReportStore
	controller.UI
	annotator  Annotator
	reconciler Reconciler
	now        func() time.Time
}

// NewWorkflow creates a Workflow with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	reportStore adapter.ReportStore,
	ui controller.UI,
	annotator Annotator,
	reconciler Reconciler,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		ReportStore:     reportStore,
		UI:              ui,
		annotator:       annotator,
		reconciler:      reconciler,
		now:             time.Now,
	}
}

type plan struct {
	patch      m.Path
	extracted  []m.Path
	candidates []m.Path
	targets    []m.Target
}

func (w *workflow) plan(args PlanArgs) (plan, error) {
	patch := args.Patch
	if !filepath.IsAbs(string(patch)) {
		patch = w.JoinPath(string(args.Root), string(patch))
	}

	in, err := w.Open(patch)
	if err != nil {
		slog.Error("Failed to open patch", "patch", patch, "error", err)
		return plan{}, fmt.Errorf("open patch: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	extracted, err := ParsePatch(in, args.Parse)
	if err != nil {
		return plan{}, fmt.Errorf("parse patch: %w", err)
	}

	filter := NewFilter(args.Filter)
	candidates := filter.Select(extracted)

	targets, err := PlanTargets(candidates, args.DirMode)
	if err != nil {
		return plan{}, fmt.Errorf("plan targets: %w", err)
	}

	slog.Info("planned targets",
		"patch", patch,
		"extracted", len(extracted),
		"candidates", len(candidates),
		"deny", filter.DenyList())

	return plan{patch: patch, extracted: extracted, candidates: candidates, targets: targets}, nil
}

// List prints the planned targets without writing anything.
func (w *workflow) List(ctx context.Context, args PlanArgs) error {
	p, err := w.plan(args)
	if err != nil {
		return err
	}

	return w.DisplayPlan(ctx, p.targets)
}

// Annotate appends directives for the patch's targets.
func (w *workflow) Annotate(ctx context.Context, args AnnotateArgs) error {
	p, err := w.plan(args.PlanArgs)
	if err != nil {
		return err
	}

	_, err = w.annotate(ctx, args, p.targets)

	return err
}

func (w *workflow) annotate(ctx context.Context, args AnnotateArgs, targets []m.Target) ([]m.Annotation, error) {
	annotations, err := w.annotator.Annotate(ctx, args.Root, targets, AnnotateOptions{
		DryRun:       args.DryRun,
		SkipExisting: args.SkipExisting,
		BeforeTarget: func(target m.Target) { w.DisplayTarget(ctx, target) },
		AfterTarget:  func(annotation m.Annotation) { w.DisplayAnnotation(ctx, annotation) },
	})
	if err != nil {
		return annotations, fmt.Errorf("annotate: %w", err)
	}

	return annotations, nil
}

// Blacklist collects and prints the markers already present in the tree.
func (w *workflow) Blacklist(ctx context.Context, args BlacklistArgs) error {
	_, err := w.blacklist(ctx, args)

	return err
}

func (w *workflow) blacklist(ctx context.Context, args BlacklistArgs) ([]m.BlacklistEntry, error) {
	entries, err := w.reconciler.Collect(ctx, args.Root, args.BlacklistFile)
	if err != nil {
		return nil, fmt.Errorf("collect blacklist: %w", err)
	}

	w.DisplayBlacklist(ctx, entries)

	return entries, nil
}

// Run executes the whole pipeline and saves a report. A report holding the
// annotations completed so far is saved even when annotation fails.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	report := m.Report{Root: args.Root, StartedAt: w.now()}

	p, err := w.plan(args.PlanArgs)
	if err != nil {
		return err
	}

	report.Patch = p.patch
	report.Extracted = len(p.extracted)
	report.Candidates = p.candidates

	if hash, hashErr := w.HashFile(p.patch); hashErr == nil {
		report.PatchHash = hash
	} else {
		slog.Warn("Failed to hash patch", "patch", p.patch, "error", hashErr)
	}

	annotations, err := w.annotate(ctx, args.AnnotateArgs, p.targets)
	report.Annotations = annotations

	if err != nil {
		w.saveReport(args.Reports, report)
		return err
	}

	entries, err := w.blacklist(ctx, BlacklistArgs{Root: args.Root, BlacklistFile: args.BlacklistFile})
	if err != nil {
		w.saveReport(args.Reports, report)
		return err
	}

	report.Blacklist = entries
	report.Overlap = Overlap(p.targets, entries)
	w.DisplayOverlap(ctx, report.Overlap)

	report.FinishedAt = w.now()

	if err := w.SaveReport(args.Reports, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	return nil
}

func (w *workflow) saveReport(dir m.Path, report m.Report) {
	report.FinishedAt = w.now()

	if err := w.SaveReport(dir, report); err != nil {
		slog.Error("Failed to save partial report", "dir", dir, "error", err)
	}
}

// View loads the last report and displays it.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(args.Reports)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}

	return w.DisplayReport(ctx, report)
}
