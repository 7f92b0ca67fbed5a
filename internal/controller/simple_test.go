package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return cmd, &buf
}

var readTarget = m.Target{Source: "fs/read.c", Dir: "fs", Makefile: "fs/Makefile", Object: "read"}

func TestSimpleUI_DisplayTarget(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayTarget(context.Background(), readTarget)

	if got, want := buf.String(), "fs/read.c\nfs/Makefile\n"; got != want {
		t.Fatalf("DisplayTarget() output = %q, want %q", got, want)
	}
}

func TestSimpleUI_DisplayAnnotation(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayAnnotation(context.Background(), m.Annotation{Status: m.Appended})
	if buf.Len() != 0 {
		t.Fatalf("appended annotations should print nothing, got %q", buf.String())
	}

	ui.DisplayAnnotation(context.Background(), m.Annotation{Status: m.Planned, Diff: "+KCOV_INSTRUMENT_read.o := y\n"})
	ui.DisplayAnnotation(context.Background(), m.Annotation{Status: m.AlreadyPresent, Makefile: "fs/Makefile", Line: "KCOV_INSTRUMENT_read.o := y"})

	output := buf.String()
	if !strings.Contains(output, "+KCOV_INSTRUMENT_read.o := y\n") {
		t.Errorf("expected diff in output, got %q", output)
	}

	if !strings.Contains(output, `skipped fs/Makefile: "KCOV_INSTRUMENT_read.o := y" already present`) {
		t.Errorf("expected skip notice in output, got %q", output)
	}
}

func TestSimpleUI_DisplayPlan(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	targets := []m.Target{
		readTarget,
		{Source: "drivers/char/mem.c", Dir: "drivers/char", Makefile: "drivers/char/Makefile", Object: "mem"},
	}

	if err := ui.DisplayPlan(context.Background(), targets); err != nil {
		t.Fatalf("DisplayPlan() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"fs/read.c", "drivers/char/Makefile", "KCOV_INSTRUMENT_mem.o := y"} {
		if !strings.Contains(output, want) {
			t.Errorf("DisplayPlan() output missing %q:\n%s", want, output)
		}
	}

	// tablewriter upper-cases footers.
	if !strings.Contains(strings.ToUpper(output), "TOTAL TARGETS 2") {
		t.Errorf("DisplayPlan() output missing total:\n%s", output)
	}
}

func TestSimpleUI_DisplayBlacklist(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayBlacklist(context.Background(), []m.BlacklistEntry{
		{File: "lib/Makefile", Line: 12, Dir: "lib", Object: "list_debug", Value: "n"},
		{File: "kernel/Makefile", Line: 3, Dir: "kernel", Value: "n"},
	})

	if got, want := buf.String(), "lib/list_debug.c\nkernel\n"; got != want {
		t.Fatalf("DisplayBlacklist() output = %q, want %q", got, want)
	}
}

func TestSimpleUI_DisplayOverlap(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayOverlap(context.Background(), nil)
	if buf.Len() != 0 {
		t.Fatalf("empty overlap should print nothing, got %q", buf.String())
	}

	ui.DisplayOverlap(context.Background(), []m.Path{"lib/list_debug.c"})

	if got, want := buf.String(), "blacklisted in tree (1):\n  lib/list_debug.c\n"; got != want {
		t.Fatalf("DisplayOverlap() output = %q, want %q", got, want)
	}
}

func TestSimpleUI_DisplayReport(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	report := m.Report{
		Root:        "/src/linux",
		Patch:       "rt.patch",
		Extracted:   4,
		Candidates:  []m.Path{"fs/read.c"},
		Annotations: []m.Annotation{{Source: "fs/read.c", Makefile: "fs/Makefile", Status: m.Appended}},
		Blacklist:   []m.BlacklistEntry{{File: "lib/Makefile", Line: 12, Dir: "lib", Object: "list_debug", Value: "n"}},
	}

	if err := ui.DisplayReport(context.Background(), report); err != nil {
		t.Fatalf("DisplayReport() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"patch:      rt.patch", "extracted:  4", "[appended] fs/read.c -> fs/Makefile", "lib/list_debug.c (lib/Makefile:12)"} {
		if !strings.Contains(output, want) {
			t.Errorf("DisplayReport() output missing %q:\n%s", want, output)
		}
	}
}

func TestSimpleUI_CanceledContext(t *testing.T) {
	cmd, buf := newTestCmd()
	ui := NewSimpleUI(cmd)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.DisplayTarget(ctx, readTarget)

	if err := ui.DisplayPlan(ctx, []m.Target{readTarget}); err == nil {
		t.Error("DisplayPlan() should fail on a canceled context")
	}

	if buf.Len() != 0 {
		t.Errorf("nothing should be printed on a canceled context, got %q", buf.String())
	}
}

func TestNewUI(t *testing.T) {
	cmd, _ := newTestCmd()

	if _, ok := NewUI(cmd, false).(*SimpleUI); !ok {
		t.Error("NewUI(false) should return a SimpleUI")
	}

	if _, ok := NewUI(cmd, true).(*TUI); !ok {
		t.Error("NewUI(true) should return a TUI")
	}
}
