package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	sourceStyle   = lipgloss.NewStyle().Bold(true)
	makefileStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	addStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// TUI implements UI with styled output and a Bubble Tea pager for long lists.
type TUI struct {
	cmd *cobra.Command
}

// NewTUI creates a new TUI writing to the command's output.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{cmd: cmd}
}

func (t *TUI) out() io.Writer {
	return t.cmd.OutOrStdout()
}

// DisplayTarget prints the source path and then the Makefile path.
func (t *TUI) DisplayTarget(ctx context.Context, target m.Target) {
	if err := ctx.Err(); err != nil {
		return
	}

	_, _ = fmt.Fprintf(t.out(), "%s\n%s\n", sourceStyle.Render(string(target.Source)), makefileStyle.Render(string(target.Makefile)))
}

// DisplayAnnotation prints colored dry-run diffs and skipped targets.
func (t *TUI) DisplayAnnotation(ctx context.Context, annotation m.Annotation) {
	if err := ctx.Err(); err != nil {
		return
	}

	switch annotation.Status {
	case m.Planned:
		_, _ = fmt.Fprint(t.out(), colorDiff(annotation.Diff))
	case m.AlreadyPresent:
		_, _ = fmt.Fprintln(t.out(), warnStyle.Render(fmt.Sprintf("skipped %s: %q already present", annotation.Makefile, annotation.Line)))
	case m.Appended:
	}
}

func colorDiff(diff string) string {
	if diff == "" {
		return ""
	}

	var b strings.Builder

	for _, line := range strings.SplitAfter(diff, "\n") {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]

		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			b.WriteString(sourceStyle.Render(body))
		case strings.HasPrefix(body, "+"):
			b.WriteString(addStyle.Render(body))
		case strings.HasPrefix(body, "-"):
			b.WriteString(delStyle.Render(body))
		default:
			b.WriteString(body)
		}

		b.WriteString(nl)
	}

	return b.String()
}

// DisplayPlan shows the planned targets, paging when they overflow the terminal.
func (t *TUI) DisplayPlan(ctx context.Context, targets []m.Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lines := make([]string, 0, len(targets)+2)
	for _, target := range targets {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			sourceStyle.Render(string(target.Source)),
			makefileStyle.Render(string(target.Makefile)),
			target.Directive()))
	}

	lines = append(lines, "", fmt.Sprintf("Total targets: %d", len(targets)))

	return t.page(newPagerModel("Planned annotations", lines))
}

// DisplayBlacklist prints one reconstructed path per entry.
func (t *TUI) DisplayBlacklist(ctx context.Context, entries []m.BlacklistEntry) {
	if err := ctx.Err(); err != nil {
		return
	}

	for _, entry := range entries {
		_, _ = fmt.Fprintln(t.out(), entry.SourcePath())
	}
}

// DisplayOverlap highlights targets the tree blacklists.
func (t *TUI) DisplayOverlap(ctx context.Context, overlap []m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	if len(overlap) == 0 {
		return
	}

	_, _ = fmt.Fprintln(t.out(), warnStyle.Render(fmt.Sprintf("blacklisted in tree (%d):", len(overlap))))

	for _, path := range overlap {
		_, _ = fmt.Fprintf(t.out(), "  %s\n", path)
	}
}

// DisplayReport shows a saved report in the pager.
func (t *TUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return t.page(newPagerModel("Last run", reportLines(report)))
}

func (t *TUI) page(model pagerModel) error {
	if f, ok := t.out().(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			model.width = width
			model.height = height
		}
	}

	if !model.needsPagination() {
		_, err := fmt.Fprint(t.out(), model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.out()), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// pagerModel is a scrollable list of pre-rendered lines.
type pagerModel struct {
	title    string
	lines    []string
	height   int
	width    int
	offset   int
	quitting bool
}

func newPagerModel(title string, lines []string) pagerModel {
	return pagerModel{title: title, lines: lines}
}

func (pm pagerModel) Init() tea.Cmd {
	return nil
}

func (pm pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pm.height = msg.Height
		pm.width = msg.Width
		pm.offset = min(pm.offset, pm.maxOffset())

		return pm, nil

	case tea.KeyMsg:
		return pm.handleKeyPress(msg)
	}

	return pm, nil
}

type pagerKeyMap struct {
	Quit     key.Binding
	Down     key.Binding
	Up       key.Binding
	Top      key.Binding
	Bottom   key.Binding
	PageDown key.Binding
	PageUp   key.Binding
}

var pagerKeys = pagerKeyMap{
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc", "q"), key.WithHelp("q", "quit")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	PageDown: key.NewBinding(key.WithKeys("d", "pgdown"), key.WithHelp("d", "page down")),
	PageUp:   key.NewBinding(key.WithKeys("u", "pgup"), key.WithHelp("u", "page up")),
}

func (km pagerKeyMap) help() string {
	bindings := []key.Binding{km.Up, km.Down, km.Top, km.Bottom, km.PageDown, km.PageUp, km.Quit}
	parts := make([]string, 0, len(bindings))

	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}

	return strings.Join(parts, " | ")
}

func (pm pagerModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, pagerKeys.Quit):
		pm.quitting = true
		return pm, tea.Quit

	case key.Matches(msg, pagerKeys.Down):
		pm.offset = min(pm.offset+1, pm.maxOffset())

	case key.Matches(msg, pagerKeys.Up):
		pm.offset = max(pm.offset-1, 0)

	case key.Matches(msg, pagerKeys.Top):
		pm.offset = 0

	case key.Matches(msg, pagerKeys.Bottom):
		pm.offset = pm.maxOffset()

	case key.Matches(msg, pagerKeys.PageDown):
		pm.offset = min(pm.offset+pm.itemsPerPage(), pm.maxOffset())

	case key.Matches(msg, pagerKeys.PageUp):
		pm.offset = max(pm.offset-pm.itemsPerPage(), 0)
	}

	return pm, nil
}

// pagerReserved covers the title and its blank line, the blank line and
// help line of the footer, and one spare line for the shell prompt.
const pagerReserved = 5

func (pm pagerModel) itemsPerPage() int {
	if pm.height == 0 {
		return 10
	}

	return max(pm.height-pagerReserved, 1)
}

func (pm pagerModel) maxOffset() int {
	return max(len(pm.lines)-pm.itemsPerPage(), 0)
}

func (pm pagerModel) needsPagination() bool {
	return pm.height > 0 && len(pm.lines) > pm.itemsPerPage()
}

func (pm pagerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("kcovmark - " + pm.title))
	b.WriteString("\n\n")

	if len(pm.lines) == 0 {
		b.WriteString("  nothing to show\n")
		return b.String()
	}

	visible := pm.lines
	paged := pm.needsPagination()

	if paged {
		end := min(pm.offset+pm.itemsPerPage(), len(pm.lines))
		visible = pm.lines[pm.offset:end]
	}

	for _, line := range visible {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if paged {
		perPage := pm.itemsPerPage()
		fmt.Fprintf(&b, "\n%s\n", helpStyle.Render(fmt.Sprintf(
			"Lines %d-%d of %d | %s",
			pm.offset+1, min(pm.offset+perPage, len(pm.lines)), len(pm.lines), pagerKeys.help())))
	}

	return b.String()
}
