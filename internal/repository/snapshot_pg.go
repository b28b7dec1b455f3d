package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/botledger/botgate/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostgresSnapshotRepo struct {
	db *sqlx.DB
}

func NewPostgresSnapshotRepo(db *sqlx.DB) *PostgresSnapshotRepo {
	repo := &PostgresSnapshotRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type snapshotDB struct {
	ID            string    `db:"id"`
	Seq           int64     `db:"seq"`
	ProjectID     string    `db:"project_id"`
	State         *string   `db:"state"`
	Side          *string   `db:"side"`
	Ticker        *string   `db:"ticker"`
	Balance       *float64  `db:"balance"`
	PnLPct        *float64  `db:"pnl_pct"`
	UnrealizedPnL *float64  `db:"unrealized_pnl"`
	FundingRate   *float64  `db:"funding_rate"`
	Trend         *string   `db:"trend"`
	EntryPrice    *float64  `db:"entry_price"`
	CurrentPrice  *float64  `db:"current_price"`
	CreatedAt     time.Time `db:"created_at"`
}

const snapshotColumns = `id, seq, project_id, state, side, ticker, balance, pnl_pct, unrealized_pnl, funding_rate, trend, entry_price, current_price, created_at`

func (r *PostgresSnapshotRepo) Insert(ctx context.Context, s *model.Snapshot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO snapshots (id, project_id, state, side, ticker, balance, pnl_pct, unrealized_pnl, funding_rate, trend, entry_price, current_price, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING seq`
	return r.db.GetContext(ctx, &s.Seq, query,
		s.ID, s.ProjectID, s.State, s.Side, s.Ticker, s.Balance, s.PnLPct,
		s.UnrealizedPnL, s.FundingRate, s.Trend, s.EntryPrice, s.CurrentPrice, s.CreatedAt)
}

// LatestByProject returns the single most recent snapshot, ties broken by
// insertion sequence. Nil when the project has none.
func (r *PostgresSnapshotRepo) LatestByProject(ctx context.Context, projectID string) (*model.Snapshot, error) {
	var sd snapshotDB
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
	          WHERE project_id = $1 ORDER BY created_at DESC, seq DESC LIMIT 1`
	err := r.db.GetContext(ctx, &sd, query, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	snap := model.Snapshot(sd)
	return &snap, nil
}

func (r *PostgresSnapshotRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]model.Snapshot, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT ` + snapshotColumns + ` FROM snapshots
	          WHERE project_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`
	rows, err := r.db.QueryxContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.Snapshot, 0, limit)
	for rows.Next() {
		var sd snapshotDB
		if err := rows.StructScan(&sd); err != nil {
			return nil, err
		}
		results = append(results, model.Snapshot(sd))
	}
	return results, rows.Err()
}

func (r *PostgresSnapshotRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL UNIQUE,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			state TEXT,
			side TEXT,
			ticker TEXT,
			balance DOUBLE PRECISION,
			pnl_pct DOUBLE PRECISION,
			unrealized_pnl DOUBLE PRECISION,
			funding_rate DOUBLE PRECISION,
			trend TEXT,
			entry_price DOUBLE PRECISION,
			current_price DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_snapshots_project_created ON snapshots (project_id, created_at DESC, seq DESC)`)
	return nil
}
