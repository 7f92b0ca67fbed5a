package domain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcovmark.dev/pkg/kcovmark/internal/adapter"
	"kcovmark.dev/pkg/kcovmark/internal/controller"
	m "kcovmark.dev/pkg/kcovmark/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

type testEnv struct {
	root     string
	reports  string
	out      *bytes.Buffer
	workflow Workflow
}

func newTestEnv(t *testing.T, patch string) testEnv {
	t.Helper()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rt.patch"), patch)

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	wf := NewWorkflow(
		fsAdapter,
		adapter.NewReportStore(),
		controller.NewSimpleUI(cmd),
		NewAnnotator(fsAdapter),
		NewReconciler(fsAdapter, adapter.NewNativeSearchAdapter(2)),
	)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	wf.(*workflow).now = func() time.Time { return fixed }

	return testEnv{root: root, reports: filepath.Join(t.TempDir(), "reports"), out: out, workflow: wf}
}

func (e testEnv) planArgs() PlanArgs {
	return PlanArgs{Root: m.Path(e.root), Patch: "rt.patch", DirMode: DirModeSegments}
}

const singleSourcePatch = `diff --git a/fs/read.c b/fs/read.c
index 3333333..4444444 100644
--- a/fs/read.c
+++ b/fs/read.c
@@ -10,3 +10,3 @@
-	return 0;
+	return ret;
`

func TestWorkflow_AnnotateEndToEnd(t *testing.T) {
	env := newTestEnv(t, singleSourcePatch)
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "fs"), 0o755))

	err := env.workflow.Annotate(context.Background(), AnnotateArgs{PlanArgs: env.planArgs()})
	require.NoError(t, err)

	assert.Equal(t, "fs/read.c\nfs/Makefile\n", env.out.String())

	data, err := os.ReadFile(filepath.Join(env.root, "fs", "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "KCOV_INSTRUMENT_read.o := y\n", string(data))
}

func TestWorkflow_AnnotateLegacyDirMode(t *testing.T) {
	env := newTestEnv(t, singleSourcePatch)
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "s"), 0o755))

	args := AnnotateArgs{PlanArgs: env.planArgs()}
	args.DirMode = DirModeLegacy

	require.NoError(t, env.workflow.Annotate(context.Background(), args))
	assert.Equal(t, "fs/read.c\ns/Makefile\n", env.out.String())

	data, err := os.ReadFile(filepath.Join(env.root, "s", "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, "KCOV_INSTRUMENT_read.o := y\n", string(data))
}

func TestWorkflow_AnnotateMissingPatch(t *testing.T) {
	env := newTestEnv(t, "")

	args := AnnotateArgs{PlanArgs: env.planArgs()}
	args.Patch = "absent.patch"

	err := env.workflow.Annotate(context.Background(), args)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkflow_List(t *testing.T) {
	patch, err := os.ReadFile("testdata/sample.patch")
	require.NoError(t, err)

	env := newTestEnv(t, string(patch))

	require.NoError(t, env.workflow.List(context.Background(), env.planArgs()))

	out := env.out.String()
	assert.Contains(t, out, "fs/read.c")
	assert.Contains(t, out, "drivers/char/Makefile")
	assert.Contains(t, out, "KCOV_INSTRUMENT_mem.o := y")
	assert.NotContains(t, out, "irq.c")
	assert.NotContains(t, out, "mmap.c")

	_, err = os.Stat(filepath.Join(env.root, "fs", "Makefile"))
	assert.ErrorIs(t, err, os.ErrNotExist, "list must not write")
}

func TestWorkflow_Blacklist(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "lib"), 0o755))
	writeFile(t, filepath.Join(env.root, "lib", "Makefile"), "KCOV_INSTRUMENT_list_debug.o := n\n")

	err := env.workflow.Blacklist(context.Background(), BlacklistArgs{Root: m.Path(env.root), BlacklistFile: "blackList"})
	require.NoError(t, err)

	assert.Equal(t, "lib/list_debug.c\n", env.out.String())
	assert.FileExists(t, filepath.Join(env.root, "blackList"))
}

func TestWorkflow_RunSavesReport(t *testing.T) {
	env := newTestEnv(t, singleSourcePatch+"diff --git a/lib/list_debug.c b/lib/list_debug.c\n")
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "fs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(env.root, "lib"), 0o755))
	writeFile(t, filepath.Join(env.root, "lib", "Makefile"), "KCOV_INSTRUMENT_list_debug.o := n\n")

	err := env.workflow.Run(context.Background(), RunArgs{
		AnnotateArgs:  AnnotateArgs{PlanArgs: env.planArgs()},
		BlacklistFile: "blackList",
		Reports:       m.Path(env.reports),
	})
	require.NoError(t, err)

	out := env.out.String()
	assert.Contains(t, out, "fs/read.c\nfs/Makefile\nlib/list_debug.c\nlib/Makefile\n")
	assert.Contains(t, out, "blacklisted in tree (1):")

	report, err := adapter.NewReportStore().LoadReport(m.Path(env.reports))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Extracted)
	assert.Equal(t, []m.Path{"fs/read.c", "lib/list_debug.c"}, report.Candidates)
	assert.Len(t, report.Annotations, 2)
	assert.Len(t, report.PatchHash, 64)
	assert.Equal(t, []m.Path{"lib/list_debug.c"}, report.Overlap)
	// The fresh directive in lib/Makefile is found alongside the existing one.
	assert.Len(t, report.Blacklist, 3)
}

func TestWorkflow_RunSavesPartialReportOnFailure(t *testing.T) {
	env := newTestEnv(t, singleSourcePatch)

	err := env.workflow.Run(context.Background(), RunArgs{
		AnnotateArgs:  AnnotateArgs{PlanArgs: env.planArgs()},
		BlacklistFile: "blackList",
		Reports:       m.Path(env.reports),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0 of 1 Makefiles written")

	report, loadErr := adapter.NewReportStore().LoadReport(m.Path(env.reports))
	require.NoError(t, loadErr)
	assert.Equal(t, []m.Path{"fs/read.c"}, report.Candidates)
	assert.Empty(t, report.Annotations)
}

func TestWorkflow_View(t *testing.T) {
	env := newTestEnv(t, "")

	require.NoError(t, adapter.NewReportStore().SaveReport(m.Path(env.reports), m.Report{
		Root:       m.Path(env.root),
		Patch:      "rt.patch",
		Candidates: []m.Path{"fs/read.c"},
	}))

	require.NoError(t, env.workflow.View(context.Background(), ViewArgs{Reports: m.Path(env.reports)}))
	assert.Contains(t, env.out.String(), "rt.patch")
	assert.Contains(t, env.out.String(), "candidates: 1")
}

func TestWorkflow_ViewWithoutReport(t *testing.T) {
	env := newTestEnv(t, "")

	err := env.workflow.View(context.Background(), ViewArgs{Reports: m.Path(env.reports)})
	require.Error(t, err)
}
