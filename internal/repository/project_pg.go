package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/botledger/botgate/internal/model"
	"github.com/jmoiron/sqlx"
)

type PostgresProjectRepo struct {
	db *sqlx.DB
}

func NewPostgresProjectRepo(db *sqlx.DB) *PostgresProjectRepo {
	repo := &PostgresProjectRepo{db: db}
	_ = repo.ensureSchema(context.Background())
	return repo
}

type projectDB struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Slug          string         `db:"slug"`
	Type          string         `db:"type"`
	Color         string         `db:"color"`
	ApiKey        string         `db:"api_key"`
	Active        bool           `db:"active"`
	WalletAddress sql.NullString `db:"wallet_address"`
	SubaccountID  sql.NullString `db:"subaccount_id"`
	CreatedAt     time.Time      `db:"created_at"`
}

const projectColumns = `id, name, slug, type, color, api_key, active, wallet_address, subaccount_id, created_at`

// ResolveByApiKey matches on the exact credential AND active = true in one
// query, so a deactivated project is indistinguishable from a missing one.
func (r *PostgresProjectRepo) ResolveByApiKey(ctx context.Context, apiKey string) (*model.Project, error) {
	var pd projectDB
	query := `SELECT ` + projectColumns + ` FROM projects WHERE api_key = $1 AND active = true LIMIT 1`

	err := r.db.GetContext(ctx, &pd, query, apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	return pd.toDomain(), nil
}

func (r *PostgresProjectRepo) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var pd projectDB
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &pd, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return pd.toDomain(), nil
}

func (r *PostgresProjectRepo) GetBySlug(ctx context.Context, slug string) (*model.Project, error) {
	var pd projectDB
	query := `SELECT ` + projectColumns + ` FROM projects WHERE slug = $1 LIMIT 1`
	err := r.db.GetContext(ctx, &pd, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return pd.toDomain(), nil
}

func (r *PostgresProjectRepo) List(ctx context.Context) ([]*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at DESC`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]*model.Project, 0, 16)
	for rows.Next() {
		var pd projectDB
		if err := rows.StructScan(&pd); err != nil {
			return nil, err
		}
		results = append(results, pd.toDomain())
	}
	return results, rows.Err()
}

func (r *PostgresProjectRepo) Create(ctx context.Context, p *model.Project) error {
	query := `INSERT INTO projects (id, name, slug, type, color, api_key, active, wallet_address, subaccount_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Slug, p.Type, p.Color, p.ApiKey, p.Active,
		nullable(p.Ethereal.WalletAddress), nullable(p.Ethereal.SubaccountID), p.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *PostgresProjectRepo) Update(ctx context.Context, p *model.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, color = $3, active = $4, wallet_address = $5, subaccount_id = $6
		WHERE id = $1
	`, p.ID, p.Name, p.Color, p.Active, nullable(p.Ethereal.WalletAddress), nullable(p.Ethereal.SubaccountID))
	return err
}

// Delete removes the project; trades, snapshots and events follow via the
// ON DELETE CASCADE foreign keys.
func (r *PostgresProjectRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

func (pd *projectDB) toDomain() *model.Project {
	return &model.Project{
		ID:     pd.ID,
		Name:   pd.Name,
		Slug:   pd.Slug,
		Type:   pd.Type,
		Color:  pd.Color,
		ApiKey: pd.ApiKey,
		Active: pd.Active,
		Ethereal: model.EtherealLink{
			WalletAddress: pd.WalletAddress.String,
			SubaccountID:  pd.SubaccountID.String,
		},
		CreatedAt: pd.CreatedAt,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresProjectRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			slug TEXT UNIQUE NOT NULL,
			type TEXT NOT NULL DEFAULT 'TRADING',
			color TEXT NOT NULL DEFAULT '#6366f1',
			api_key TEXT UNIQUE NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			wallet_address TEXT,
			subaccount_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = r.db.ExecContext(ctx, `ALTER TABLE projects ADD COLUMN IF NOT EXISTS wallet_address TEXT`)
	_, _ = r.db.ExecContext(ctx, `ALTER TABLE projects ADD COLUMN IF NOT EXISTS subaccount_id TEXT`)
	return nil
}
