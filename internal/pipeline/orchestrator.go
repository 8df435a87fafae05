package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/artifacts"
	"github.com/ideaforge/ideaforge/internal/audit"
	"github.com/ideaforge/ideaforge/internal/blender"
	"github.com/ideaforge/ideaforge/internal/provider"
	"github.com/ideaforge/ideaforge/internal/sessions"
	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// SceneExporter is the slice of the Blender bridge the orchestrator
// needs; nil means export is unconfigured on this deployment
type SceneExporter interface {
	ExportScene(ctx context.Context, req blender.SceneRequest) (string, error)
	Launch(blendFilePath string) error
}

// TagSyncer mirrors session/tag data into the discovery graph; nil
// means the graph is disabled
type TagSyncer interface {
	SyncSession(ctx context.Context, sessionID uuid.UUID, concept, stage string, tags []string) error
	RemoveSession(ctx context.Context, sessionID uuid.UUID) error
}

// Orchestrator drives sessions through the ideation pipeline. Stage
// and artifact state change only after the producing step succeeds, so
// a failed generation leaves the session exactly where it was.
type Orchestrator struct {
	sessions  sessions.SessionManager
	artifacts artifacts.ArtifactStore
	blobs     artifacts.BlobStore
	text      provider.TextClient
	renderer  provider.SketchRenderer
	mesher    provider.MeshGenerator
	exporter  SceneExporter
	graph     TagSyncer
	recorder  *audit.Recorder
	logger    *zap.Logger
}

// NewOrchestrator creates a pipeline orchestrator. exporter and graph
// may be nil when those integrations are disabled.
func NewOrchestrator(
	sessionManager sessions.SessionManager,
	artifactStore artifacts.ArtifactStore,
	blobStore artifacts.BlobStore,
	textClient provider.TextClient,
	renderer provider.SketchRenderer,
	mesher provider.MeshGenerator,
	exporter SceneExporter,
	graph TagSyncer,
	recorder *audit.Recorder,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		sessions:  sessionManager,
		artifacts: artifactStore,
		blobs:     blobStore,
		text:      textClient,
		renderer:  renderer,
		mesher:    mesher,
		exporter:  exporter,
		graph:     graph,
		recorder:  recorder,
		logger:    logger,
	}
}

// CreateSession creates a session and extracts tags from its
// description. Tag extraction is best effort; a provider failure still
// yields a usable session.
func (o *Orchestrator) CreateSession(ctx context.Context, req *sessions.CreateSessionRequest) (*sessions.Session, error) {
	if len(req.Tags) == 0 && strings.TrimSpace(req.Description) != "" {
		tags, err := o.text.ExtractTags(ctx, req.Description, 10)
		if err != nil {
			o.logger.Warn("Tag extraction failed, continuing without tags", zap.Error(err))
		} else {
			req.Tags = tags
		}
	}

	session, err := o.sessions.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}

	o.syncGraph(ctx, session)
	return session, nil
}

// UploadSketch attaches the user's sketch to a freshly created session
// and advances it to sketch_uploaded. Re-uploading after the pipeline
// has started is rejected.
func (o *Orchestrator) UploadSketch(ctx context.Context, sessionID uuid.UUID, data []byte, contentType string) (*artifacts.Artifact, error) {
	start := time.Now()

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Stage != sessions.StageCreated {
		err := zerrors.NewValidationError(
			"sketch can only be uploaded to a session in the created stage, current stage is "+string(session.Stage), nil)
		o.recorder.Record(ctx, sessionID, audit.OpUploadSketch, string(session.Stage), start, err, nil)
		return nil, err
	}

	if len(data) == 0 {
		err := zerrors.NewValidationError("sketch file is empty", nil)
		o.recorder.Record(ctx, sessionID, audit.OpUploadSketch, string(session.Stage), start, err, nil)
		return nil, err
	}

	ext := extForContentType(contentType)
	path, err := o.blobs.Save(artifacts.KindSketch, sessionID, ext, data)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpUploadSketch, string(session.Stage), start, err, nil)
		return nil, err
	}

	artifact := &artifacts.Artifact{
		UUID:        uuid.New(),
		SessionID:   sessionID,
		Kind:        artifacts.KindSketch,
		ContentType: contentType,
		Path:        path,
		SizeBytes:   int64(len(data)),
		Stage:       string(sessions.StageSketchUploaded),
		Params:      map[string]any{"content_type": contentType},
		CreatedAt:   time.Now(),
	}

	if err := o.createArtifactAndAdvance(ctx, session, artifact, sessions.StageSketchUploaded); err != nil {
		o.cleanupBlob(path)
		o.recorder.Record(ctx, sessionID, audit.OpUploadSketch, string(session.Stage), start, err, nil)
		return nil, err
	}

	o.recorder.Record(ctx, sessionID, audit.OpUploadSketch, string(sessions.StageSketchUploaded), start, nil, artifact.Params)
	return artifact, nil
}

// GenerateImage renders the session's sketch into a concept image and
// advances the session to image_generated
func (o *Orchestrator) GenerateImage(ctx context.Context, sessionID uuid.UUID) (*artifacts.Artifact, error) {
	start := time.Now()

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Stage != sessions.StageSketchUploaded {
		err := zerrors.NewValidationError(
			"image generation requires an uploaded sketch, current stage is "+string(session.Stage), nil)
		o.recorder.Record(ctx, sessionID, audit.OpGenerateImage, string(session.Stage), start, err, nil)
		return nil, err
	}

	sketch, err := o.artifacts.LatestByKind(ctx, sessionID, artifacts.KindSketch)
	if err != nil {
		return nil, err
	}

	sketchData, err := o.blobs.Read(sketch.Path)
	if err != nil {
		return nil, err
	}

	promptCtx := provider.RenderContext{
		Concept:     session.Concept,
		ProjectType: session.ProjectType,
		Genre:       session.Genre,
		Description: session.Description,
	}

	rendered, contentType, err := o.renderer.RenderSketch(ctx, sketchData, sketch.ContentType, promptCtx)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpGenerateImage, string(session.Stage), start, err, nil)
		return nil, err
	}

	path, err := o.blobs.Save(artifacts.KindImage, sessionID, ".png", rendered)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpGenerateImage, string(session.Stage), start, err, nil)
		return nil, err
	}

	artifact := &artifacts.Artifact{
		UUID:        uuid.New(),
		SessionID:   sessionID,
		Kind:        artifacts.KindImage,
		ContentType: contentType,
		Path:        path,
		SizeBytes:   int64(len(rendered)),
		Stage:       string(sessions.StageImageGenerated),
		Params: map[string]any{
			"source_artifact": sketch.UUID.String(),
			"concept":         promptCtx.Concept,
			"project_type":    promptCtx.ProjectType,
			"genre":           promptCtx.Genre,
		},
		CreatedAt: time.Now(),
	}

	if err := o.createArtifactAndAdvance(ctx, session, artifact, sessions.StageImageGenerated); err != nil {
		o.cleanupBlob(path)
		o.recorder.Record(ctx, sessionID, audit.OpGenerateImage, string(session.Stage), start, err, nil)
		return nil, err
	}

	o.recorder.Record(ctx, sessionID, audit.OpGenerateImage, string(sessions.StageImageGenerated), start, nil, artifact.Params)
	return artifact, nil
}

// GenerateModelFromImage turns the session's rendered image into a 3D
// model and advances the session to model_generated
func (o *Orchestrator) GenerateModelFromImage(ctx context.Context, sessionID uuid.UUID) (*artifacts.Artifact, error) {
	start := time.Now()

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Stage != sessions.StageImageGenerated {
		err := zerrors.NewValidationError(
			"model generation from image requires a generated image, current stage is "+string(session.Stage), nil)
		o.recorder.Record(ctx, sessionID, audit.OpModelFromImg, string(session.Stage), start, err, nil)
		return nil, err
	}

	image, err := o.artifacts.LatestByKind(ctx, sessionID, artifacts.KindImage)
	if err != nil {
		return nil, err
	}

	imageData, err := o.blobs.Read(image.Path)
	if err != nil {
		return nil, err
	}

	modelData, contentType, err := o.mesher.MeshFromImage(ctx, imageData)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpModelFromImg, string(session.Stage), start, err, nil)
		return nil, err
	}

	params := map[string]any{"source": "image", "source_artifact": image.UUID.String()}
	artifact, err := o.storeModel(ctx, session, modelData, contentType, params)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpModelFromImg, string(session.Stage), start, err, nil)
		return nil, err
	}

	o.recorder.Record(ctx, sessionID, audit.OpModelFromImg, string(sessions.StageModelGenerated), start, nil, params)
	return artifact, nil
}

// GenerateModelFromText asks the text client for a detailed modeling
// prompt, feeds it to the mesh generator, and advances the session to
// model_generated. Valid from any stage before model_generated; the
// sketch and image steps are skipped entirely.
func (o *Orchestrator) GenerateModelFromText(ctx context.Context, sessionID uuid.UUID) (*artifacts.Artifact, error) {
	start := time.Now()

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.Stage.Before(sessions.StageModelGenerated) {
		err := zerrors.NewValidationError(
			"session already has a model, current stage is "+string(session.Stage), nil)
		o.recorder.Record(ctx, sessionID, audit.OpModelFromText, string(session.Stage), start, err, nil)
		return nil, err
	}

	prompt, err := o.text.Generate3DPrompt(ctx, session.Concept, session.ProjectType, session.Genre, session.Description)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpModelFromText, string(session.Stage), start, err, nil)
		return nil, err
	}

	modelData, contentType, err := o.mesher.MeshFromText(ctx, prompt)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpModelFromText, string(session.Stage), start, err, nil)
		return nil, err
	}

	params := map[string]any{"source": "text", "prompt": prompt}
	artifact, err := o.storeModel(ctx, session, modelData, contentType, params)
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpModelFromText, string(session.Stage), start, err, nil)
		return nil, err
	}

	o.recorder.Record(ctx, sessionID, audit.OpModelFromText, string(sessions.StageModelGenerated), start, nil, params)
	return artifact, nil
}

// ExportSession hands the session's models to Blender and records the
// resulting .blend path. Re-exporting an already exported session
// rebuilds the scene without changing the stage.
func (o *Orchestrator) ExportSession(ctx context.Context, sessionID uuid.UUID, launch bool) (*sessions.Session, error) {
	start := time.Now()

	session, err := o.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Stage.Before(sessions.StageModelGenerated) {
		err := zerrors.NewExportError(
			"export requires a generated model, current stage is "+string(session.Stage), nil)
		o.recorder.Record(ctx, sessionID, audit.OpExport, string(session.Stage), start, err, nil)
		return nil, err
	}

	if o.exporter == nil {
		err := zerrors.NewExportError("blender integration is not configured", nil)
		o.recorder.Record(ctx, sessionID, audit.OpExport, string(session.Stage), start, err, nil)
		return nil, err
	}

	all, err := o.artifacts.ListSessionArtifacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	modelPaths := make([]string, 0, 1)
	for _, artifact := range all {
		if artifact.Kind == artifacts.KindModel {
			modelPaths = append(modelPaths, artifact.Path)
		}
	}

	blendPath, err := o.exporter.ExportScene(ctx, blender.SceneRequest{
		SessionID:   sessionID.String(),
		Concept:     session.Concept,
		ProjectType: session.ProjectType,
		Genre:       session.Genre,
		ModelPaths:  modelPaths,
	})
	if err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpExport, string(session.Stage), start, err, nil)
		return nil, err
	}

	if session.Stage == sessions.StageExported {
		// re-export: scene rebuilt, stage already terminal
		o.recorder.Record(ctx, sessionID, audit.OpExport, string(session.Stage), start, nil,
			map[string]any{"blend_file": blendPath, "re_export": true})
	} else {
		session, err = o.sessions.AdvanceStage(ctx, &sessions.AdvanceStageRequest{
			SessionID:     sessionID,
			Stage:         sessions.StageExported,
			BlendFilePath: &blendPath,
		})
		if err != nil {
			return nil, err
		}
		o.recorder.Record(ctx, sessionID, audit.OpExport, string(sessions.StageExported), start, nil,
			map[string]any{"blend_file": blendPath})
		o.syncGraph(ctx, session)
	}

	if launch {
		if err := o.exporter.Launch(blendPath); err != nil {
			o.logger.Warn("Failed to launch blender", zap.Error(err))
		}
	}

	return session, nil
}

// SessionArtifacts lists a session's artifacts, newest first
func (o *Orchestrator) SessionArtifacts(ctx context.Context, sessionID uuid.UUID) ([]*artifacts.Artifact, error) {
	return o.artifacts.ListSessionArtifacts(ctx, sessionID)
}

// DeleteSession removes the session along with its artifacts, blobs,
// audit trail, and graph node
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	start := time.Now()

	if err := o.sessions.DeleteSession(ctx, sessionID); err != nil {
		o.recorder.Record(ctx, sessionID, audit.OpDelete, "", start, err, nil)
		return err
	}

	removed, err := o.artifacts.DeleteSessionArtifacts(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, artifact := range removed {
		o.cleanupBlob(artifact.Path)
	}

	if err := o.recorder.PurgeSession(ctx, sessionID); err != nil {
		o.logger.Warn("Failed to purge session events",
			zap.String("session_id", sessionID.String()),
			zap.Error(err))
	}

	if o.graph != nil {
		if err := o.graph.RemoveSession(ctx, sessionID); err != nil {
			o.logger.Warn("Failed to remove session from tag graph",
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
		}
	}

	o.logger.Info("Deleted session and artifacts",
		zap.String("session_id", sessionID.String()),
		zap.Int("artifacts", len(removed)))

	return nil
}

// storeModel saves a generated model blob, records its artifact, and
// advances the session to model_generated
func (o *Orchestrator) storeModel(ctx context.Context, session *sessions.Session, data []byte, contentType string, params map[string]any) (*artifacts.Artifact, error) {
	path, err := o.blobs.Save(artifacts.KindModel, session.UUID, ".glb", data)
	if err != nil {
		return nil, err
	}

	artifact := &artifacts.Artifact{
		UUID:        uuid.New(),
		SessionID:   session.UUID,
		Kind:        artifacts.KindModel,
		ContentType: contentType,
		Path:        path,
		SizeBytes:   int64(len(data)),
		Stage:       string(sessions.StageModelGenerated),
		Params:      params,
		CreatedAt:   time.Now(),
	}

	if err := o.createArtifactAndAdvance(ctx, session, artifact, sessions.StageModelGenerated); err != nil {
		o.cleanupBlob(path)
		return nil, err
	}

	return artifact, nil
}

func (o *Orchestrator) createArtifactAndAdvance(ctx context.Context, session *sessions.Session, artifact *artifacts.Artifact, stage sessions.Stage) error {
	if err := o.artifacts.CreateArtifact(ctx, artifact); err != nil {
		return err
	}

	updated, err := o.sessions.AdvanceStage(ctx, &sessions.AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     stage,
	})
	if err != nil {
		// the artifact row must not outlive a failed stage advance
		if delErr := o.artifacts.DeleteArtifact(ctx, artifact.UUID); delErr != nil {
			o.logger.Warn("Failed to remove artifact after stage advance failure",
				zap.String("artifact_id", artifact.UUID.String()),
				zap.Error(delErr))
		}
		return err
	}

	*session = *updated
	o.syncGraph(ctx, session)
	return nil
}

// syncGraph mirrors the session into the tag graph; failures only
// degrade related-session discovery
func (o *Orchestrator) syncGraph(ctx context.Context, session *sessions.Session) {
	if o.graph == nil {
		return
	}
	if err := o.graph.SyncSession(ctx, session.UUID, session.Concept, string(session.Stage), session.Tags); err != nil {
		o.logger.Warn("Failed to sync session to tag graph",
			zap.String("session_id", session.UUID.String()),
			zap.Error(err))
	}
}

func (o *Orchestrator) cleanupBlob(path string) {
	if err := o.blobs.Remove(path); err != nil {
		o.logger.Warn("Failed to remove blob", zap.String("path", path), zap.Error(err))
	}
}

func extForContentType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
