package sessions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// Service implements SessionManager interface
type Service struct {
	store  SessionStore
	logger *zap.Logger
}

// NewService creates a new session service
func NewService(store SessionStore, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// CreateSession creates a new ideation session in the created stage
func (s *Service) CreateSession(ctx context.Context, req *CreateSessionRequest) (*Session, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, zerrors.NewValidationError("concept is required", nil)
	}
	if strings.TrimSpace(req.ProjectType) == "" {
		return nil, zerrors.NewValidationError("project_type is required", nil)
	}
	if strings.TrimSpace(req.Genre) == "" {
		return nil, zerrors.NewValidationError("genre is required", nil)
	}

	now := time.Now()
	session := &Session{
		UUID:        uuid.New(),
		Concept:     strings.TrimSpace(req.Concept),
		ProjectType: strings.TrimSpace(req.ProjectType),
		Genre:       strings.TrimSpace(req.Genre),
		Description: req.Description,
		Tags:        normalizeTags(req.Tags),
		Stage:       StageCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Created ideation session",
		zap.String("session_id", session.UUID.String()),
		zap.String("concept", session.Concept),
		zap.String("project_type", session.ProjectType))

	return session, nil
}

// GetSession retrieves a session by ID
func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.store.GetSession(ctx, id)
}

// ListSessions returns all sessions, most recently updated first
func (s *Service) ListSessions(ctx context.Context) ([]*Session, error) {
	return s.store.ListSessions(ctx)
}

// AdvanceStage moves a session to a strictly later pipeline stage.
// Sessions never move backwards.
func (s *Service) AdvanceStage(ctx context.Context, req *AdvanceStageRequest) (*Session, error) {
	if !req.Stage.Valid() {
		return nil, zerrors.NewValidationError("unknown stage: "+string(req.Stage), nil)
	}

	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if !session.Stage.Before(req.Stage) {
		return nil, zerrors.NewValidationError(
			"session in stage "+string(session.Stage)+" cannot move to "+string(req.Stage), nil)
	}

	session.Stage = req.Stage
	if req.BlendFilePath != nil {
		session.BlendFilePath = req.BlendFilePath
	}
	session.UpdatedAt = time.Now()

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Advanced session stage",
		zap.String("session_id", session.UUID.String()),
		zap.String("stage", string(session.Stage)))

	return session, nil
}

// DeleteSession removes a session
func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteSession(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted session", zap.String("session_id", id.String()))
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
