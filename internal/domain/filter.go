package domain

import (
	"log/slog"
	"strings"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// DefaultDeny lists the substrings that disqualify a candidate path. The
// matches are plain substrings, so "mm" also drops drivers/mmap.c.
var DefaultDeny = []string{"arch/", "kernel", "efi", "boot", ".h", "mm"}

// includeDirDeny is added by FilterOptions.ExcludeIncludeDir.
const includeDirDeny = "include/"

var sourceExtensions = []string{".c", ".h"}

// FilterOptions configures candidate selection.
type FilterOptions struct {
	// Deny replaces DefaultDeny when non-nil.
	Deny []string
	// ExcludeIncludeDir also drops paths under include/.
	ExcludeIncludeDir bool
	// StrictExtensions requires paths to end in .c or .h instead of merely
	// containing them.
	StrictExtensions bool
}

// Filter selects the patch paths that should be annotated.
type Filter struct {
	deny   []string
	strict bool
}

// NewFilter builds a Filter from opts.
func NewFilter(opts FilterOptions) Filter {
	deny := DefaultDeny
	if opts.Deny != nil {
		deny = opts.Deny
	}

	deny = append([]string(nil), deny...)
	if opts.ExcludeIncludeDir {
		deny = append(deny, includeDirDeny)
	}

	return Filter{deny: deny, strict: opts.StrictExtensions}
}

// DenyList returns the effective deny substrings.
func (f Filter) DenyList() []string {
	return append([]string(nil), f.deny...)
}

// Candidates keeps the paths that look like C sources or headers.
func (f Filter) Candidates(paths []m.Path) []m.Path {
	out := make([]m.Path, 0, len(paths))

	for _, path := range paths {
		if f.isSource(string(path)) {
			out = append(out, path)
		}
	}

	return out
}

func (f Filter) isSource(path string) bool {
	for _, ext := range sourceExtensions {
		if f.strict && strings.HasSuffix(path, ext) {
			return true
		}

		if !f.strict && strings.Contains(path, ext) {
			return true
		}
	}

	return false
}

// Denied returns the first deny substring contained in path.
func (f Filter) Denied(path m.Path) (string, bool) {
	for _, deny := range f.deny {
		if deny != "" && strings.Contains(string(path), deny) {
			return deny, true
		}
	}

	return "", false
}

// Apply returns a new slice without the denied paths. The input is left
// untouched.
func (f Filter) Apply(paths []m.Path) []m.Path {
	out := make([]m.Path, 0, len(paths))

	for _, path := range paths {
		if deny, ok := f.Denied(path); ok {
			slog.Debug("dropping denied path", "path", path, "match", deny)
			continue
		}

		out = append(out, path)
	}

	return out
}

// Select runs Candidates followed by Apply.
func (f Filter) Select(paths []m.Path) []m.Path {
	return f.Apply(f.Candidates(paths))
}
