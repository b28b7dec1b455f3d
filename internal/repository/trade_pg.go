package repository

import (
	"context"
	"time"

	"github.com/botledger/botgate/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PostgresTradeRepo struct {
	db *sqlx.DB
}

func NewPostgresTradeRepo(db *sqlx.DB) *PostgresTradeRepo {
	repo := &PostgresTradeRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type tradeDB struct {
	ID        string    `db:"id"`
	Seq       int64     `db:"seq"`
	ProjectID string    `db:"project_id"`
	TxType    string    `db:"tx_type"`
	Side      string    `db:"side"`
	Ticker    string    `db:"ticker"`
	Quantity  float64   `db:"quantity"`
	Price     float64   `db:"price"`
	Notional  float64   `db:"notional"`
	PnL       *float64  `db:"pnl"`
	Reason    *string   `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// Insert persists one trade atomically and fills in the generated identity.
func (r *PostgresTradeRepo) Insert(ctx context.Context, t *model.Trade) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO trades (id, project_id, tx_type, side, ticker, quantity, price, notional, pnl, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING seq`
	return r.db.GetContext(ctx, &t.Seq, query,
		t.ID, t.ProjectID, t.TxType, t.Side, t.Ticker,
		t.Quantity, t.Price, t.Notional, t.PnL, t.Reason, t.CreatedAt)
}

// ListByProject returns the most recent trades first, capped at limit.
// Ties on created_at break by insertion sequence.
func (r *PostgresTradeRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]model.Trade, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, seq, project_id, tx_type, side, ticker, quantity, price, notional, pnl, reason, created_at
	          FROM trades WHERE project_id = $1 ORDER BY created_at DESC, seq DESC LIMIT $2`
	rows, err := r.db.QueryxContext(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]model.Trade, 0, limit)
	for rows.Next() {
		var td tradeDB
		if err := rows.StructScan(&td); err != nil {
			return nil, err
		}
		results = append(results, model.Trade(td))
	}
	return results, rows.Err()
}

func (r *PostgresTradeRepo) CountByProject(ctx context.Context, projectID string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM trades WHERE project_id = $1`, projectID)
	return count, err
}

func (r *PostgresTradeRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL UNIQUE,
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			tx_type TEXT NOT NULL,
			side TEXT NOT NULL,
			ticker TEXT NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			notional DOUBLE PRECISION NOT NULL,
			pnl DOUBLE PRECISION,
			reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_trades_project_created ON trades (project_id, created_at DESC, seq DESC)`)
	return nil
}
