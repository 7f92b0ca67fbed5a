package domain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// InstrumentMarker is the token searched for across the tree.
const InstrumentMarker = "KCOV_INSTRUMENT"

var (
	searchLinePattern = regexp.MustCompile(`^(.+?):(\d+):(.*)$`)
	objectPattern     = regexp.MustCompile(`KCOV_INSTRUMENT_([^\s.]+)\.o(?:\s*[:+?]?=\s*(\S*))?`)
	directoryPattern  = regexp.MustCompile(`KCOV_INSTRUMENT\s*[:+?]?=\s*(\S*)`)
)

// ParseSearchLine parses one "path:line:content" search hit. It reports false
// for lines that do not carry a KCOV_INSTRUMENT assignment.
func ParseSearchLine(line string) (m.BlacklistEntry, bool) {
	fields := searchLinePattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if fields == nil {
		return m.BlacklistEntry{}, false
	}

	lineNo, err := strconv.Atoi(fields[2])
	if err != nil {
		return m.BlacklistEntry{}, false
	}

	file := strings.TrimPrefix(filepath.ToSlash(fields[1]), "./")
	entry := m.BlacklistEntry{
		File: m.Path(file),
		Line: lineNo,
		Dir:  m.Path(path.Dir(file)),
	}

	content := fields[3]

	if match := objectPattern.FindStringSubmatch(content); match != nil {
		entry.Object = match[1]
		entry.Value = match[2]

		return entry, true
	}

	if match := directoryPattern.FindStringSubmatch(content); match != nil {
		entry.Value = match[1]

		return entry, true
	}

	return m.BlacklistEntry{}, false
}

// ParseBlacklist reads search output and returns the parsed entries in order.
func ParseBlacklist(r io.Reader) ([]m.BlacklistEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPatchLine)

	var entries []m.BlacklistEntry

	for scanner.Scan() {
		entry, ok := ParseSearchLine(scanner.Text())
		if !ok {
			slog.Debug("skipping search line", "line", scanner.Text())
			continue
		}

		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read search output: %w", err)
	}

	return entries, nil
}

// Overlap returns the sources of targets that the tree assigns a value other
// than "y", either per object or through a directory-wide assignment.
// Entries matching the directives kcovmark writes are ignored. Target order
// is kept and each source appears once.
func Overlap(targets []m.Target, entries []m.BlacklistEntry) []m.Path {
	objects := make(map[m.Path]struct{}, len(entries))
	dirs := make(map[m.Path]struct{})

	for _, entry := range entries {
		if entry.Value == m.DirectiveValue {
			continue
		}

		if entry.DirectoryWide() {
			dirs[entry.Dir] = struct{}{}
			continue
		}

		objects[entry.SourcePath()] = struct{}{}
	}

	seen := make(map[m.Path]struct{})

	var overlap []m.Path

	for _, target := range targets {
		source := m.Path(path.Clean(string(target.Source)))
		if _, dup := seen[source]; dup {
			continue
		}

		_, inObjects := objects[source]
		_, inDirs := dirs[m.Path(path.Dir(string(source)))]

		if inObjects || inDirs {
			seen[source] = struct{}{}
			overlap = append(overlap, source)
		}
	}

	return overlap
}

// Reconciler collects existing instrumentation markers from the tree.
type Reconciler interface {
	Collect(ctx context.Context, root m.Path, blacklistFile string) ([]m.BlacklistEntry, error)
}

type reconciler struct {
	fsAdapter     adapter.SourceFSAdapter
	searchAdapter adapter.SearchAdapter
}

// NewReconciler constructs a Reconciler that searches with searchAdapter and
// stores the raw hits through fsAdapter.
func NewReconciler(fsAdapter adapter.SourceFSAdapter, searchAdapter adapter.SearchAdapter) Reconciler {
	return &reconciler{fsAdapter: fsAdapter, searchAdapter: searchAdapter}
}

// Collect searches root for KCOV_INSTRUMENT, writes the hits to
// root/blacklistFile (overwriting it) and parses the file back.
func (r *reconciler) Collect(ctx context.Context, root m.Path, blacklistFile string) ([]m.BlacklistEntry, error) {
	outPath := r.fsAdapter.JoinPath(string(root), blacklistFile)

	if err := r.search(ctx, root, outPath, filepath.Base(blacklistFile)); err != nil {
		return nil, err
	}

	in, err := r.fsAdapter.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", outPath, err)
	}

	defer func() {
		_ = in.Close()
	}()

	entries, err := ParseBlacklist(in)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", outPath, err)
	}

	slog.Info("collected blacklist", "file", outPath, "entries", len(entries))

	return entries, nil
}

func (r *reconciler) search(ctx context.Context, root, outPath m.Path, exclude string) (err error) {
	out, err := r.fsAdapter.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", outPath, closeErr)
		}
	}()

	req := adapter.SearchRequest{
		Root:    root,
		Pattern: InstrumentMarker,
		Exclude: []string{exclude},
	}

	if err := r.searchAdapter.Search(ctx, req, out); err != nil {
		slog.Error("Search failed", "root", root, "error", err)
		return fmt.Errorf("search %s: %w", root, err)
	}

	return nil
}
