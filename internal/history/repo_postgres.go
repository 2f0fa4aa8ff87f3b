package history

import (
	"context"
	"database/sql"
)

// PostgresRepo persists transitions via database/sql (pgx stdlib driver).
//
// Expected schema:
//
//	CREATE TABLE call_status_history (
//	  id         UUID PRIMARY KEY,
//	  call_id    TEXT NOT NULL,
//	  status     TEXT NOT NULL,
//	  actor_id   TEXT NOT NULL DEFAULT '',
//	  actor_role TEXT NOT NULL DEFAULT '',
//	  created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX ON call_status_history (call_id, created_at);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, tr Transition) error {
	const q = `
INSERT INTO call_status_history (id, call_id, status, actor_id, actor_role, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q,
		tr.ID,
		tr.CallID,
		tr.Status,
		tr.ActorID,
		tr.ActorRole,
		tr.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) ListByCall(ctx context.Context, callID string) ([]Transition, error) {
	const q = `
SELECT id, call_id, status, actor_id, actor_role, created_at
FROM call_status_history
WHERE call_id = $1
ORDER BY created_at ASC
`
	rows, err := r.db.QueryContext(ctx, q, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transition, 0)
	for rows.Next() {
		var tr Transition
		if err := rows.Scan(&tr.ID, &tr.CallID, &tr.Status, &tr.ActorID, &tr.ActorRole, &tr.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}
