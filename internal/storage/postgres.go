package storage

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/ideaforge/ideaforge/internal/artifacts"
	"github.com/ideaforge/ideaforge/internal/audit"
	"github.com/ideaforge/ideaforge/internal/sessions"
	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// NewDB opens a bun handle on PostgreSQL
func NewDB(dsn string, maxOpenConns int) (*bun.DB, error) {
	if dsn == "" {
		return nil, zerrors.NewConfigurationError("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if maxOpenConns > 0 {
		sqldb.SetMaxOpenConns(maxOpenConns)
		sqldb.SetMaxIdleConns(maxOpenConns)
	}

	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// Migrate creates the service tables and indexes if they do not exist
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*sessions.SessionSchema)(nil),
		(*artifacts.ArtifactSchema)(nil),
		(*audit.GenerationEventSchema)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return zerrors.NewStorageError("create table", err)
		}
	}

	var indexes []string
	indexes = append(indexes, sessions.SessionIndexes...)
	indexes = append(indexes, artifacts.ArtifactIndexes...)
	indexes = append(indexes, audit.EventIndexes...)

	for _, ddl := range indexes {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return zerrors.NewStorageError("create index", err)
		}
	}

	return nil
}
