package blender

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// knownExecutablePaths are checked when blender is not on PATH and no
// explicit executable was configured
var knownExecutablePaths = []string{
	"/usr/bin/blender",
	"/usr/local/bin/blender",
	"/Applications/Blender.app/Contents/MacOS/Blender",
	`C:\Program Files\Blender Foundation\Blender\blender.exe`,
}

// SceneRequest describes the scene to assemble for one session export
type SceneRequest struct {
	SessionID   string
	Concept     string
	ProjectType string
	Genre       string
	ModelPaths  []string
	OutputPath  string
}

// Bridge hands session output to a local Blender install. All work
// goes through headless invocations of the blender binary driven by a
// generated Python script.
type Bridge struct {
	executable string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewBridge creates a bridge using the given executable, falling back
// to PATH lookup and the standard install locations
func NewBridge(executable string, timeout time.Duration, logger *zap.Logger) (*Bridge, error) {
	resolved, err := FindExecutable(executable)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Bridge{
		executable: resolved,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// FindExecutable resolves the blender binary. An explicit path wins;
// otherwise PATH and the known install locations are tried in order.
func FindExecutable(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", zerrors.NewConfigurationError("blender executable not found at " + explicit)
		}
		return explicit, nil
	}

	if path, err := exec.LookPath("blender"); err == nil {
		return path, nil
	}

	for _, candidate := range knownExecutablePaths {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", zerrors.NewConfigurationError(
		"could not find blender executable, set blender.executable or IDEAFORGE_BLENDER_EXECUTABLE")
}

// ExportScene assembles a .blend file for the session: metadata text
// objects, the generated models, studio lighting, and a camera. Returns
// the path of the written .blend file.
func (b *Bridge) ExportScene(ctx context.Context, req SceneRequest) (string, error) {
	outputPath := req.OutputPath
	if outputPath == "" {
		outputPath = filepath.Join(os.TempDir(), fmt.Sprintf("ideation_%s.blend", req.SessionID))
	}

	script := buildSceneScript(req, outputPath)

	scriptFile, err := os.CreateTemp("", "ideaforge_scene_*.py")
	if err != nil {
		return "", zerrors.NewExportError("create scene script", err)
	}
	scriptPath := scriptFile.Name()
	defer os.Remove(scriptPath)

	if _, err := scriptFile.WriteString(script); err != nil {
		scriptFile.Close()
		return "", zerrors.NewExportError("write scene script", err)
	}
	if err := scriptFile.Close(); err != nil {
		return "", zerrors.NewExportError("write scene script", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.executable, "--background", "--python", scriptPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		b.logger.Error("Blender export failed",
			zap.String("session_id", req.SessionID),
			zap.String("output", string(output)),
			zap.Error(err))
		return "", zerrors.NewExportError("blender scene export failed", err)
	}

	b.logger.Info("Exported blender scene",
		zap.String("session_id", req.SessionID),
		zap.String("blend_file", outputPath))

	return outputPath, nil
}

// Launch opens an exported .blend file in the Blender UI. The process
// is detached; the caller does not wait for it.
func (b *Bridge) Launch(blendFilePath string) error {
	if _, err := os.Stat(blendFilePath); err != nil {
		return zerrors.NewNotFoundError("blend file", blendFilePath)
	}

	cmd := exec.Command(b.executable, blendFilePath)
	if err := cmd.Start(); err != nil {
		return zerrors.NewExportError("launch blender", err)
	}

	b.logger.Info("Launched blender", zap.String("blend_file", blendFilePath))
	return nil
}

// buildSceneScript renders the bpy script executed by headless blender
func buildSceneScript(req SceneRequest, outputPath string) string {
	var sb strings.Builder

	sb.WriteString(`import bpy
import os
import math

bpy.ops.object.select_all(action='SELECT')
bpy.ops.object.delete()

def add_text(text, location, size=1.0):
    bpy.ops.object.text_add(location=location)
    text_obj = bpy.context.active_object
    text_obj.data.body = text
    text_obj.data.size = size
    return text_obj

def import_model(model_path, location):
    if not model_path or not os.path.exists(model_path):
        return None
    ext = os.path.splitext(model_path)[1].lower()
    before = set(bpy.context.scene.objects)
    if ext == '.obj':
        bpy.ops.import_scene.obj(filepath=model_path)
    elif ext == '.fbx':
        bpy.ops.import_scene.fbx(filepath=model_path)
    elif ext in ('.glb', '.gltf'):
        bpy.ops.import_scene.gltf(filepath=model_path)
    elif ext == '.stl':
        bpy.ops.import_mesh.stl(filepath=model_path)
    elif ext == '.ply':
        bpy.ops.import_mesh.ply(filepath=model_path)
    else:
        print('Unsupported file format: ' + ext)
        return None
    new_objs = [o for o in bpy.context.scene.objects if o not in before]
    for obj in new_objs:
        obj.location.x += location[0]
        obj.location.y += location[1]
        obj.location.z += location[2]
    return new_objs

def create_studio_lighting():
    collection = bpy.data.collections.new('Studio Lighting')
    bpy.context.scene.collection.children.link(collection)
    for name, energy, loc, rot in (
        ('Key Light', 300, (5, -5, 5), (45, 0, 45)),
        ('Fill Light', 150, (-5, -2, 3), (30, 0, -45)),
        ('Rim Light', 200, (0, 5, 4), (60, 0, 180)),
    ):
        light = bpy.data.lights.new(name=name, type='AREA')
        light.energy = energy
        obj = bpy.data.objects.new(name=name, object_data=light)
        obj.location = loc
        obj.rotation_euler = tuple(math.radians(d) for d in rot)
        collection.objects.link(obj)

`)

	fmt.Fprintf(&sb, "add_text(%s, (0, 2, 0), 0.5)\n", pyString("Concept: "+req.Concept))
	fmt.Fprintf(&sb, "add_text(%s, (0, 1, 0), 0.5)\n", pyString("Project Type: "+req.ProjectType))
	fmt.Fprintf(&sb, "add_text(%s, (0, 0, 0), 0.5)\n\n", pyString("Genre: "+req.Genre))

	for i, modelPath := range req.ModelPaths {
		x := -3 + 6*(i%2)
		fmt.Fprintf(&sb, "import_model(%s, (%d, -3, 0))\n", pyString(modelPath), x)
	}

	sb.WriteString(`
create_studio_lighting()

camera_data = bpy.data.cameras.new('Ideation Camera')
camera_object = bpy.data.objects.new('Ideation Camera', camera_data)
bpy.context.scene.collection.objects.link(camera_object)
bpy.context.scene.camera = camera_object
camera_object.location = (0, -10, 2)
camera_object.rotation_euler = (math.radians(80), 0, 0)

`)

	fmt.Fprintf(&sb, "bpy.ops.wm.save_as_mainfile(filepath=%s)\n", pyString(outputPath))

	return sb.String()
}

// pyString renders s as a quoted python string literal
func pyString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + replacer.Replace(s) + "'"
}
