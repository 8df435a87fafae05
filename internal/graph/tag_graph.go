package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// Neo4jConfig represents Neo4j connection configuration
type Neo4jConfig struct {
	URI      string `json:"uri" yaml:"uri"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
}

// RelatedSession is another session sharing tags with the queried one
type RelatedSession struct {
	SessionID  uuid.UUID `json:"session_id"`
	Concept    string    `json:"concept"`
	SharedTags []string  `json:"shared_tags"`
}

// TagGraph maintains a Session/Tag graph in Neo4j so sessions can be
// discovered through the tags they share. The graph is a secondary
// index over Postgres data; sync failures degrade discovery, never the
// pipeline.
type TagGraph struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewTagGraph creates a tag graph client and verifies connectivity
func NewTagGraph(config Neo4jConfig, logger *zap.Logger) (*TagGraph, error) {
	if config.URI == "" {
		return nil, zerrors.NewConfigurationError("neo4j uri is required")
	}

	auth := neo4j.BasicAuth(config.Username, config.Password, "")
	driver, err := neo4j.NewDriverWithContext(config.URI, auth)
	if err != nil {
		return nil, zerrors.NewConfigurationError(fmt.Sprintf("failed to create neo4j driver: %v", err))
	}

	client := &TagGraph{
		driver:   driver,
		database: config.Database,
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, zerrors.NewConfigurationError(fmt.Sprintf("failed to connect to neo4j: %v", err))
	}

	if err := client.initializeSchema(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	logger.Info("Tag graph initialized",
		zap.String("uri", config.URI),
		zap.String("database", config.Database))

	return client, nil
}

// Close closes the Neo4j driver
func (g *TagGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// initializeSchema creates necessary constraints and indexes
func (g *TagGraph) initializeSchema(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT session_uuid IF NOT EXISTS FOR (s:Session) REQUIRE s.uuid IS UNIQUE",
		"CREATE CONSTRAINT tag_name IF NOT EXISTS FOR (t:Tag) REQUIRE t.name IS UNIQUE",
		"CREATE INDEX session_stage IF NOT EXISTS FOR (s:Session) ON (s.stage)",
	}

	for _, statement := range statements {
		if _, err := session.Run(ctx, statement, nil); err != nil {
			g.logger.Warn("Failed to create graph schema element",
				zap.String("statement", statement),
				zap.Error(err))
		}
	}

	return nil
}

// SyncSession upserts a session node and rebinds its TAGGED edges to
// match the current tag set
func (g *TagGraph) SyncSession(ctx context.Context, sessionID uuid.UUID, concept, stage string, tags []string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	query := `
		MERGE (s:Session {uuid: $uuid})
		SET s.concept = $concept,
		    s.stage = $stage,
		    s.updated_at = $updated_at
		WITH s
		OPTIONAL MATCH (s)-[old:TAGGED]->(:Tag)
		DELETE old
		WITH DISTINCT s
		UNWIND $tags AS tag_name
		MERGE (t:Tag {name: tag_name})
		MERGE (s)-[:TAGGED]->(t)
	`

	// UNWIND over an empty list drops the row, so sessions without
	// tags still need the node upsert above to run first
	params := map[string]any{
		"uuid":       sessionID.String(),
		"concept":    concept,
		"stage":      stage,
		"updated_at": time.Now().UTC(),
		"tags":       tags,
	}

	if _, err := session.Run(ctx, query, params); err != nil {
		return zerrors.NewStorageError("sync session to graph", err)
	}

	g.logger.Debug("Synced session to tag graph",
		zap.String("session_id", sessionID.String()),
		zap.Int("tags", len(tags)))

	return nil
}

// RelatedSessions returns sessions sharing at least one tag with the
// given session, ranked by how many tags they share
func (g *TagGraph) RelatedSessions(ctx context.Context, sessionID uuid.UUID, limit int) ([]*RelatedSession, error) {
	if limit <= 0 {
		limit = 10
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	query := `
		MATCH (s:Session {uuid: $uuid})-[:TAGGED]->(t:Tag)<-[:TAGGED]-(other:Session)
		WHERE other.uuid <> $uuid
		WITH other, collect(t.name) AS shared
		RETURN other.uuid AS uuid, other.concept AS concept, shared
		ORDER BY size(shared) DESC, other.uuid
		LIMIT $limit
	`

	result, err := session.Run(ctx, query, map[string]any{
		"uuid":  sessionID.String(),
		"limit": limit,
	})
	if err != nil {
		return nil, zerrors.NewStorageError("query related sessions", err)
	}

	related := make([]*RelatedSession, 0)
	for result.Next(ctx) {
		record := result.Record()

		rawUUID, _ := record.Get("uuid")
		id, err := uuid.Parse(fmt.Sprint(rawUUID))
		if err != nil {
			continue
		}

		rawConcept, _ := record.Get("concept")
		rawShared, _ := record.Get("shared")

		shared := make([]string, 0)
		if list, ok := rawShared.([]any); ok {
			for _, item := range list {
				shared = append(shared, fmt.Sprint(item))
			}
		}

		related = append(related, &RelatedSession{
			SessionID:  id,
			Concept:    fmt.Sprint(rawConcept),
			SharedTags: shared,
		})
	}
	if err := result.Err(); err != nil {
		return nil, zerrors.NewStorageError("query related sessions", err)
	}

	return related, nil
}

// RemoveSession deletes a session node and prunes tags nothing points
// to anymore
func (g *TagGraph) RemoveSession(ctx context.Context, sessionID uuid.UUID) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	query := `
		MATCH (s:Session {uuid: $uuid})
		OPTIONAL MATCH (s)-[:TAGGED]->(t:Tag)
		DETACH DELETE s
		WITH DISTINCT t
		WHERE t IS NOT NULL AND NOT (t)<-[:TAGGED]-(:Session)
		DELETE t
	`

	if _, err := session.Run(ctx, query, map[string]any{"uuid": sessionID.String()}); err != nil {
		return zerrors.NewStorageError("remove session from graph", err)
	}

	g.logger.Debug("Removed session from tag graph",
		zap.String("session_id", sessionID.String()))

	return nil
}
