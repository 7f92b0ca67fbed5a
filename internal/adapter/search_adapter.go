package adapter

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

// ErrUnknownSearchBackend is returned by NewSearchAdapter for an unsupported backend name.
var ErrUnknownSearchBackend = errors.New("unknown search backend")

const (
	// BackendGrep shells out to grep -rn.
	BackendGrep = "grep"
	// BackendNative walks the tree in-process.
	BackendNative = "native"
)

// SearchRequest describes a recursive literal search over a source tree.
type SearchRequest struct {
	Root    m.Path
	Pattern string
	// Exclude lists file base names that must not be searched.
	Exclude []string
}

// SearchAdapter runs a recursive text search and writes the hits to out in
// grep's "path:line:content" format, with paths relative to the root.
type SearchAdapter interface {
	Search(ctx context.Context, req SearchRequest, out io.Writer) error
}

// NewSearchAdapter returns the adapter registered under backend.
func NewSearchAdapter(backend string, workers int) (SearchAdapter, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendGrep:
		return NewGrepSearchAdapter(), nil
	case BackendNative:
		return NewNativeSearchAdapter(workers), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownSearchBackend, backend)
}

// GrepSearchAdapter runs the system grep binary.
type GrepSearchAdapter struct {
	binary string
}

// NewGrepSearchAdapter constructs a GrepSearchAdapter using grep from PATH.
func NewGrepSearchAdapter() *GrepSearchAdapter {
	return &GrepSearchAdapter{binary: "grep"}
}

// Search runs `grep -rn` in the root directory. grep exits with status 1
// when nothing matched; that is reported as an empty result, not an error.
func (a *GrepSearchAdapter) Search(ctx context.Context, req SearchRequest, out io.Writer) error {
	args := []string{"-rn", "--exclude-dir=.git"}
	for _, name := range req.Exclude {
		args = append(args, "--exclude="+name)
	}

	args = append(args, "-e", req.Pattern)

	// #nosec G204 - binary is fixed and the pattern is passed as a single -e argument
	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Dir = string(req.Root)

	var stderr bytes.Buffer

	cmd.Stdout = out
	cmd.Stderr = &stderr

	slog.Debug("running search", "binary", a.binary, "args", args, "dir", req.Root)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		slog.Debug("search found no matches", "pattern", req.Pattern)
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("search interrupted: %w", ctxErr)
	}

	return fmt.Errorf("%s failed: %w: %s", a.binary, err, strings.TrimSpace(stderr.String()))
}

// NativeSearchAdapter walks the tree with filepath.WalkDir and scans files
// concurrently. Binary files and .git directories are skipped.
type NativeSearchAdapter struct {
	workers int
}

// NewNativeSearchAdapter constructs a NativeSearchAdapter scanning up to
// workers files at a time.
func NewNativeSearchAdapter(workers int) *NativeSearchAdapter {
	if workers < 1 {
		workers = 1
	}

	return &NativeSearchAdapter{workers: workers}
}

type searchHit struct {
	path    string
	line    int
	content string
}

// Search implements SearchAdapter.
func (a *NativeSearchAdapter) Search(ctx context.Context, req SearchRequest, out io.Writer) error {
	root := string(req.Root)
	excluded := make(map[string]struct{}, len(req.Exclude))

	for _, name := range req.Exclude {
		excluded[name] = struct{}{}
	}

	var (
		mu   sync.Mutex
		hits []searchHit
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.workers)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if groupCtx.Err() != nil {
			return groupCtx.Err()
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if _, skip := excluded[d.Name()]; skip {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		group.Go(func() error {
			found, err := scanFile(path, rel, req.Pattern)
			if err != nil {
				return err
			}

			if len(found) == 0 {
				return nil
			}

			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()

			return nil
		})

		return nil
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("scan %s: %w", root, err)
	}

	if walkErr != nil {
		return fmt.Errorf("walk %s: %w", root, walkErr)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].path != hits[j].path {
			return hits[i].path < hits[j].path
		}

		return hits[i].line < hits[j].line
	})

	w := bufio.NewWriter(out)
	for _, hit := range hits {
		if _, err := fmt.Fprintf(w, "%s:%d:%s\n", hit.path, hit.line, hit.content); err != nil {
			return err
		}
	}

	return w.Flush()
}

// binarySniffLen matches the prefix grep inspects for NUL bytes.
const binarySniffLen = 8000

func scanFile(path, rel, pattern string) ([]searchHit, error) {
	// #nosec G304 - path comes from walking the operator's tree
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0 {
		return nil, nil
	}

	if !bytes.Contains(data, []byte(pattern)) {
		return nil, nil
	}

	var hits []searchHit

	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, pattern) {
			hits = append(hits, searchHit{path: rel, line: i + 1, content: line})
		}
	}

	return hits, nil
}
