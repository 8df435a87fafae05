package blender

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

func TestFindExecutableExplicitMissing(t *testing.T) {
	_, err := FindExecutable("/nonexistent/blender")
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindConfiguration))
}

func TestFindExecutableExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blender")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	resolved, err := FindExecutable(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
}

func TestBuildSceneScript(t *testing.T) {
	script := buildSceneScript(SceneRequest{
		SessionID:   "abc",
		Concept:     "ancient watchtower",
		ProjectType: "game",
		Genre:       "fantasy",
		ModelPaths:  []string{"/models/a.glb", "/models/b.glb"},
	}, "/out/scene.blend")

	assert.Contains(t, script, "import bpy")
	assert.Contains(t, script, "add_text('Concept: ancient watchtower', (0, 2, 0), 0.5)")
	assert.Contains(t, script, "add_text('Project Type: game', (0, 1, 0), 0.5)")
	assert.Contains(t, script, "add_text('Genre: fantasy', (0, 0, 0), 0.5)")
	assert.Contains(t, script, "import_model('/models/a.glb', (-3, -3, 0))")
	assert.Contains(t, script, "import_model('/models/b.glb', (3, -3, 0))")
	assert.Contains(t, script, "create_studio_lighting()")
	assert.Contains(t, script, "bpy.ops.wm.save_as_mainfile(filepath='/out/scene.blend')")
}

func TestBuildSceneScriptEscapesQuotes(t *testing.T) {
	script := buildSceneScript(SceneRequest{
		Concept: "dragon's lair",
	}, "/out/scene.blend")

	assert.Contains(t, script, `add_text('Concept: dragon\'s lair', (0, 2, 0), 0.5)`)
}

func TestExportSceneRunsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "invoked")
	fake := filepath.Join(dir, "blender")
	stub := "#!/bin/sh\necho \"$@\" > " + marker + "\n"
	require.NoError(t, os.WriteFile(fake, []byte(stub), 0o755))

	bridge, err := NewBridge(fake, time.Minute, zap.NewNop())
	require.NoError(t, err)

	out := filepath.Join(dir, "scene.blend")
	path, err := bridge.ExportScene(context.Background(), SceneRequest{
		SessionID:  "abc",
		Concept:    "tower",
		OutputPath: out,
	})
	require.NoError(t, err)
	assert.Equal(t, out, path)

	args, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Contains(t, string(args), "--background")
	assert.Contains(t, string(args), "--python")
}

func TestExportSceneFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "blender")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	bridge, err := NewBridge(fake, time.Minute, zap.NewNop())
	require.NoError(t, err)

	_, err = bridge.ExportScene(context.Background(), SceneRequest{SessionID: "abc"})
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindExport))
}

func TestLaunchMissingFile(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "blender")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\n"), 0o755))

	bridge, err := NewBridge(fake, time.Minute, zap.NewNop())
	require.NoError(t, err)

	err = bridge.Launch(filepath.Join(dir, "missing.blend"))
	require.Error(t, err)
	assert.True(t, zerrors.IsNotFound(err))
}

func TestPyString(t *testing.T) {
	assert.Equal(t, "'plain'", pyString("plain"))
	assert.Equal(t, `'it\'s'`, pyString("it's"))
	assert.True(t, strings.HasPrefix(pyString(`C:\models`), "'C:\\\\"))
}
