package sessions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

func newTestService() *Service {
	return NewService(NewInMemoryStore(), zap.NewNop())
}

func TestCreateSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept:     "ancient watchtower",
		ProjectType: "game",
		Genre:       "fantasy",
		Description: "a ruined tower on a cliff",
		Tags:        []string{"Tower", "tower", " ruins "},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, session.UUID)
	assert.Equal(t, StageCreated, session.Stage)
	assert.Equal(t, []string{"tower", "ruins"}, session.Tags)
	assert.False(t, session.CreatedAt.IsZero())

	fetched, err := svc.GetSession(ctx, session.UUID)
	require.NoError(t, err)
	assert.Equal(t, session.Concept, fetched.Concept)
}

func TestCreateSessionValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *CreateSessionRequest
	}{
		{"missing concept", &CreateSessionRequest{ProjectType: "game", Genre: "fantasy"}},
		{"missing project type", &CreateSessionRequest{Concept: "tower", Genre: "fantasy"}},
		{"missing genre", &CreateSessionRequest{Concept: "tower", ProjectType: "game"}},
		{"blank concept", &CreateSessionRequest{Concept: "   ", ProjectType: "game", Genre: "fantasy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSession(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
		})
	}
}

func TestAdvanceStage(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	updated, err := svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     StageSketchUploaded,
	})
	require.NoError(t, err)
	assert.Equal(t, StageSketchUploaded, updated.Stage)

	// stages are monotonic: going back or standing still is rejected
	_, err = svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     StageCreated,
	})
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))

	_, err = svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     StageSketchUploaded,
	})
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
}

func TestAdvanceStageSkipsAllowed(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	// text-to-3D path jumps straight from created to model_generated
	updated, err := svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     StageModelGenerated,
	})
	require.NoError(t, err)
	assert.Equal(t, StageModelGenerated, updated.Stage)
}

func TestAdvanceStageAttachesBlendFile(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	path := "/exports/tower.blend"
	updated, err := svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID:     session.UUID,
		Stage:         StageExported,
		BlendFilePath: &path,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.BlendFilePath)
	assert.Equal(t, path, *updated.BlendFilePath)
}

func TestAdvanceStageUnknownStage(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	_, err = svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: session.UUID,
		Stage:     Stage("finished"),
	})
	require.Error(t, err)
	assert.True(t, zerrors.IsKind(err, zerrors.KindValidation))
}

func TestDeleteSession(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, session.UUID))

	_, err = svc.GetSession(ctx, session.UUID)
	require.Error(t, err)
	assert.True(t, zerrors.IsNotFound(err))

	err = svc.DeleteSession(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, zerrors.IsNotFound(err))
}

func TestListSessionsOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "tower", ProjectType: "game", Genre: "fantasy",
	})
	require.NoError(t, err)

	second, err := svc.CreateSession(ctx, &CreateSessionRequest{
		Concept: "bridge", ProjectType: "film", Genre: "sci-fi",
	})
	require.NoError(t, err)

	// touching the first session moves it to the front
	_, err = svc.AdvanceStage(ctx, &AdvanceStageRequest{
		SessionID: first.UUID,
		Stage:     StageSketchUploaded,
	})
	require.NoError(t, err)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.UUID, list[0].UUID)
	assert.Equal(t, second.UUID, list[1].UUID)
}
