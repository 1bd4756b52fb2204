package activity

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS relay_activity (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	channel_id  TEXT,
	author      TEXT,
	content     TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS relay_activity_occurred_at_idx ON relay_activity (occurred_at DESC);
`

const insertSQL = `
	INSERT INTO relay_activity (id, kind, channel_id, author, content, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
`

// EnsureSchema creates the activity table if it does not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create activity schema: %w", err)
	}
	return nil
}
