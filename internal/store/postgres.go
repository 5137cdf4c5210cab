package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// Schema creates the planograms table. The full document lives in data; the
// other columns are copies used for listing and filtering.
const Schema = `
CREATE TABLE IF NOT EXISTS planograms (
	id               UUID PRIMARY KEY,
	name             TEXT NOT NULL,
	store_id         TEXT NOT NULL DEFAULT '',
	shelf_id         TEXT NOT NULL DEFAULT '',
	data             JSONB NOT NULL,
	compliance_score DOUBLE PRECISION,
	last_modified    TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS planograms_store_id_idx ON planograms (store_id);`

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository returns a Repository backed by db. Call Migrate once
// before first use.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// OpenPostgres connects to databaseURL, checks the connection and applies
// Schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the planograms table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate planograms table: %w", err)
	}
	return nil
}

func (r *postgresRepo) Create(ctx context.Context, p *planogram.Planogram) error {
	if err := prepareCreate(p); err != nil {
		return err
	}
	uid, err := parseID(p.ID)
	if err != nil {
		return err
	}
	data, err := planogram.Marshal(*p)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO planograms
		  (id, name, store_id, shelf_id, data, compliance_score, last_modified)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		uid, p.Name, p.StoreID, p.ShelfID, string(data), nullScore(p.ComplianceScore), p.LastModified)
	if err != nil {
		return fmt.Errorf("failed to insert planogram: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, p.ID)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*planogram.Planogram, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound(id)
	}

	var data []byte
	err = r.db.QueryRowContext(ctx, `SELECT data FROM planograms WHERE id=$1`, uid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load planogram: %w", err)
	}

	p, err := planogram.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode planogram %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepo) Update(ctx context.Context, p *planogram.Planogram) error {
	uid, err := uuid.Parse(p.ID)
	if err != nil {
		return notFound(p.ID)
	}
	if err := planogram.Validate(*p); err != nil {
		return err
	}
	data, err := planogram.Marshal(*p)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE planograms
		SET name=$1, store_id=$2, shelf_id=$3, data=$4, compliance_score=$5, last_modified=$6
		WHERE id=$7`,
		p.Name, p.StoreID, p.ShelfID, string(data), nullScore(p.ComplianceScore), p.LastModified, uid)
	if err != nil {
		return fmt.Errorf("failed to update planogram: %w", err)
	}
	return expectRow(res, p.ID)
}

func (r *postgresRepo) List(ctx context.Context, storeID string) ([]*Summary, error) {
	query := `SELECT id, name, store_id, shelf_id, jsonb_array_length(data->'products'), compliance_score, last_modified
	          FROM planograms WHERE 1=1`
	args := []interface{}{}
	if storeID != "" {
		query += ` AND store_id=$1`
		args = append(args, storeID)
	}
	query += ` ORDER BY last_modified DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list planograms: %w", err)
	}
	defer rows.Close()

	summaries := []*Summary{}
	for rows.Next() {
		s := &Summary{}
		var score sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.Name, &s.StoreID, &s.ShelfID, &s.ProductCount, &score, &s.LastModified); err != nil {
			return nil, fmt.Errorf("failed to scan planogram: %w", err)
		}
		if score.Valid {
			v := score.Float64
			s.ComplianceScore = &v
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list planograms: %w", err)
	}
	return summaries, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return notFound(id)
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM planograms WHERE id=$1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete planogram: %w", err)
	}
	return expectRow(res, id)
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, &planogram.ValidationError{Field: "id", Reason: "must be a UUID"}
	}
	return uid, nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func nullScore(score *float64) sql.NullFloat64 {
	if score == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *score, Valid: true}
}
