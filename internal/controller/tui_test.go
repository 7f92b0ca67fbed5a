package controller

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

func numberedLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line-%02d", i+1)
	}

	return lines
}

func TestTUI_DisplayTargetAndBlacklist(t *testing.T) {
	cmd, buf := newTestCmd()
	tui := NewTUI(cmd)

	tui.DisplayTarget(context.Background(), readTarget)
	tui.DisplayBlacklist(context.Background(), []m.BlacklistEntry{{Dir: "lib", Object: "list_debug"}})

	output := buf.String()
	for _, want := range []string{"fs/read.c", "fs/Makefile", "lib/list_debug.c"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}

func TestTUI_DisplayPlanWithoutTerminal(t *testing.T) {
	cmd, buf := newTestCmd()
	tui := NewTUI(cmd)

	if err := tui.DisplayPlan(context.Background(), []m.Target{readTarget}); err != nil {
		t.Fatalf("DisplayPlan() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "kcovmark - Planned annotations") {
		t.Errorf("output should contain the title, got %q", output)
	}

	if !strings.Contains(output, "Total targets: 1") {
		t.Errorf("output should contain the total, got %q", output)
	}
}

func TestColorDiff_KeepsText(t *testing.T) {
	diff := "--- a/fs/Makefile\n+++ b/fs/Makefile\n@@ -1 +1,2 @@\n obj-y := read.o\n+KCOV_INSTRUMENT_read.o := y\n"

	got := colorDiff(diff)
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		if !strings.Contains(got, line) {
			t.Errorf("colorDiff() dropped %q", line)
		}
	}

	if colorDiff("") != "" {
		t.Error("colorDiff(\"\") should be empty")
	}
}

func TestPagerModel_NoPagination_ShowsAllContent(t *testing.T) {
	model := newPagerModel("Last run", numberedLines(3))
	model.height = 40

	if model.needsPagination() {
		t.Fatal("three lines should fit in 40 rows")
	}

	view := model.View()
	for _, line := range numberedLines(3) {
		if !strings.Contains(view, line) {
			t.Errorf("View() missing %q", line)
		}
	}

	if strings.Contains(view, "q quit") {
		t.Error("View() should not show pager help when everything fits")
	}
}

func TestPagerModel_Pagination_VisibleContent(t *testing.T) {
	model := newPagerModel("Last run", numberedLines(30))
	model.height = 15

	perPage := model.itemsPerPage()
	if perPage != 15-pagerReserved {
		t.Fatalf("itemsPerPage() = %d, want %d", perPage, 15-pagerReserved)
	}

	view := model.View()
	if !strings.Contains(view, "line-01") || strings.Contains(view, fmt.Sprintf("line-%02d", perPage+1)) {
		t.Errorf("first page should show lines 1-%d only:\n%s", perPage, view)
	}

	if !strings.Contains(view, fmt.Sprintf("Lines 1-%d of 30", perPage)) {
		t.Errorf("View() should show the position, got:\n%s", view)
	}
}

func TestPagerModel_Navigation(t *testing.T) {
	var model tea.Model = pagerModel{title: "t", lines: numberedLines(30), height: 15}

	press := func(key string) {
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
	}

	press("j")
	press("j")

	if got := model.(pagerModel).offset; got != 2 {
		t.Fatalf("offset after jj = %d, want 2", got)
	}

	press("k")

	if got := model.(pagerModel).offset; got != 1 {
		t.Fatalf("offset after k = %d, want 1", got)
	}

	press("G")

	pm := model.(pagerModel)
	if pm.offset != pm.maxOffset() {
		t.Fatalf("offset after G = %d, want %d", pm.offset, pm.maxOffset())
	}

	if !strings.Contains(pm.View(), "line-30") {
		t.Error("last page should show the last line")
	}

	press("d")

	if got := model.(pagerModel).offset; got != pm.maxOffset() {
		t.Fatalf("offset should stay clamped at %d, got %d", pm.maxOffset(), got)
	}

	press("g")

	if got := model.(pagerModel).offset; got != 0 {
		t.Fatalf("offset after g = %d, want 0", got)
	}

	press("u")

	if got := model.(pagerModel).offset; got != 0 {
		t.Fatalf("offset should stay clamped at 0, got %d", got)
	}
}

func TestPagerModel_Quit(t *testing.T) {
	model := newPagerModel("t", numberedLines(1))

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}

	if !updated.(pagerModel).quitting {
		t.Error("q should mark the model as quitting")
	}
}

func TestPagerModel_WindowResizeClampsOffset(t *testing.T) {
	model := pagerModel{title: "t", lines: numberedLines(30), height: 10, offset: 25}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	pm := updated.(pagerModel)

	if pm.height != 40 || pm.width != 80 {
		t.Fatalf("size not applied: %dx%d", pm.width, pm.height)
	}

	if pm.offset != pm.maxOffset() {
		t.Errorf("offset = %d, want clamped %d", pm.offset, pm.maxOffset())
	}
}

func TestPagerModel_Empty(t *testing.T) {
	view := newPagerModel("Last run", nil).View()

	if !strings.Contains(view, "nothing to show") {
		t.Errorf("View() = %q, want empty notice", view)
	}
}
