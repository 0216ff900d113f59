package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/d4tools/loothound/internal/model"
)

// pgxDB is the minimal pool surface used by PostgresStore. pgxmock satisfies
// it in tests.
type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	db pgxDB
}

// NewPostgres connects to the given database URL and pings it.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{db: pool}, nil
}

// NewPostgresFromDB wraps an existing pool-compatible handle. Used by tests.
func NewPostgresFromDB(db pgxDB) *PostgresStore {
	return &PostgresStore{db: db}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS classes (
	internal_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_types (
	internal_id TEXT PRIMARY KEY,
	payload     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS affixes (
	internal_id TEXT PRIMARY KEY,
	payload     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS aspects (
	internal_id TEXT PRIMARY KEY,
	payload     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY,
	build_name TEXT NOT NULL,
	winner     TEXT NOT NULL,
	score_a    DOUBLE PRECISION NOT NULL,
	score_b    DOUBLE PRECISION NOT NULL,
	delta      DOUBLE PRECISION NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comparisons_build ON comparisons(build_name);
CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// SaveCatalog replaces the stored reference data. Upserts keyed on internal
// id keep reloads idempotent.
func (s *PostgresStore) SaveCatalog(ctx context.Context, data *CatalogData) error {
	for _, cl := range data.Classes {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO classes (internal_id, name) VALUES ($1, $2)
			ON CONFLICT (internal_id) DO UPDATE SET name = EXCLUDED.name`,
			cl.InternalID, cl.Name,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert class %s", cl.InternalID)
		}
	}
	if err := s.upsertPayloads(ctx, "item_types", len(data.ItemTypes), func(i int) (string, any) {
		return data.ItemTypes[i].InternalID, data.ItemTypes[i]
	}); err != nil {
		return err
	}
	if err := s.upsertPayloads(ctx, "affixes", len(data.Affixes), func(i int) (string, any) {
		return data.Affixes[i].InternalID, data.Affixes[i]
	}); err != nil {
		return err
	}
	return s.upsertPayloads(ctx, "aspects", len(data.Aspects), func(i int) (string, any) {
		return data.Aspects[i].InternalID, data.Aspects[i]
	})
}

func (s *PostgresStore) upsertPayloads(ctx context.Context, table string, n int, row func(int) (string, any)) error {
	for i := 0; i < n; i++ {
		id, v := row(i)
		payload, err := json.Marshal(v)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal %s %s", table, id)
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO `+table+` (internal_id, payload) VALUES ($1, $2)
			ON CONFLICT (internal_id) DO UPDATE SET payload = EXCLUDED.payload`,
			id, payload,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert %s %s", table, id)
		}
	}
	return nil
}

// LoadCatalog reads the full reference data set.
func (s *PostgresStore) LoadCatalog(ctx context.Context) (*CatalogData, error) {
	data := &CatalogData{}

	rows, err := s.db.Query(ctx, "SELECT internal_id, name FROM classes ORDER BY internal_id")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query classes")
	}
	defer rows.Close()
	for rows.Next() {
		var cl model.Class
		if err := rows.Scan(&cl.InternalID, &cl.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan class")
		}
		data.Classes = append(data.Classes, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate classes")
	}

	if err := s.loadPayloads(ctx, "item_types", func(payload []byte) error {
		var it model.ItemType
		if err := json.Unmarshal(payload, &it); err != nil {
			return err
		}
		data.ItemTypes = append(data.ItemTypes, it)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.loadPayloads(ctx, "affixes", func(payload []byte) error {
		var a model.CatalogAffix
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		data.Affixes = append(data.Affixes, a)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.loadPayloads(ctx, "aspects", func(payload []byte) error {
		var a model.CatalogAspect
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		data.Aspects = append(data.Aspects, a)
		return nil
	}); err != nil {
		return nil, err
	}

	return data, nil
}

func (s *PostgresStore) loadPayloads(ctx context.Context, table string, apply func([]byte) error) error {
	rows, err := s.db.Query(ctx, "SELECT payload FROM "+table+" ORDER BY internal_id")
	if err != nil {
		return eris.Wrapf(err, "postgres: query %s", table)
	}
	defer rows.Close()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return eris.Wrapf(err, "postgres: scan %s", table)
		}
		if err := apply(payload); err != nil {
			return eris.Wrapf(err, "postgres: decode %s", table)
		}
	}
	return eris.Wrapf(rows.Err(), "postgres: iterate %s", table)
}

// SaveComparison appends one comparison to the history.
func (s *PostgresStore) SaveComparison(ctx context.Context, res *model.ComparisonResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comparison")
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO comparisons (id, build_name, winner, score_a, score_b, delta, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID, res.BuildName, string(res.Winner),
		res.ScoreA.Total, res.ScoreB.Total, res.Delta,
		payload, res.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert comparison")
}

// ListComparisons returns history entries, newest first.
func (s *PostgresStore) ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonResult, error) {
	query := "SELECT payload FROM comparisons"
	var args []any
	argNum := 1
	if filter.BuildName != "" {
		query += " WHERE build_name = $1"
		args = append(args, filter.BuildName)
		argNum++
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argNum)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan comparison")
		}
		var res model.ComparisonResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, eris.Wrap(err, "postgres: decode comparison")
		}
		out = append(out, res)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate comparisons")
}
