package repository

import (
	"context"
	"time"

	"github.com/botledger/botgate/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostgresEventRepo struct {
	db *sqlx.DB
}

func NewPostgresEventRepo(db *sqlx.DB) *PostgresEventRepo {
	repo := &PostgresEventRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type eventDB struct {
	ID          string    `db:"id"`
	Seq         int64     `db:"seq"`
	ProjectID   string    `db:"project_id"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Value       *float64  `db:"value"`
	EventType   string    `db:"event_type"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *PostgresEventRepo) Insert(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO events (id, project_id, title, description, value, event_type, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING seq`
	return r.db.GetContext(ctx, &e.Seq, query,
		e.ID, e.ProjectID, e.Title, e.Description, e.Value, e.EventType, e.CreatedAt)
}

func (r *PostgresEventRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, seq, project_id, title, description, value, event_type, created_at
	          FROM events WHERE project_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`
	rows, err := r.db.QueryxContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.Event, 0, limit)
	for rows.Next() {
		var ed eventDB
		if err := rows.StructScan(&ed); err != nil {
			return nil, err
		}
		results = append(results, model.Event(ed))
	}
	return results, rows.Err()
}

func (r *PostgresEventRepo) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM events WHERE project_id = $1`, projectID)
	return count, err
}

func (r *PostgresEventRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL UNIQUE,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT,
			value DOUBLE PRECISION,
			event_type TEXT NOT NULL DEFAULT 'note',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_events_project_created ON events (project_id, created_at DESC, seq DESC)`)
	return nil
}
