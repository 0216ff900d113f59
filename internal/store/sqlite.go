package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/d4tools/loothound/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS classes (
	internal_id TEXT PRIMARY KEY,
	name        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_types (
	internal_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS affixes (
	internal_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS aspects (
	internal_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id         TEXT PRIMARY KEY,
	build_name TEXT NOT NULL,
	winner     TEXT NOT NULL,
	score_a    REAL NOT NULL,
	score_b    REAL NOT NULL,
	delta      REAL NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_comparisons_build ON comparisons(build_name);
CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveCatalog replaces the stored reference data inside one transaction.
func (s *SQLiteStore) SaveCatalog(ctx context.Context, data *CatalogData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	for _, table := range []string{"classes", "item_types", "affixes", "aspects"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for _, cl := range data.Classes {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO classes (internal_id, name) VALUES (?, ?)",
			cl.InternalID, cl.Name,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert class %s", cl.InternalID)
		}
	}
	if err := insertPayloads(ctx, tx, "item_types", len(data.ItemTypes), func(i int) (string, any) {
		return data.ItemTypes[i].InternalID, data.ItemTypes[i]
	}); err != nil {
		return err
	}
	if err := insertPayloads(ctx, tx, "affixes", len(data.Affixes), func(i int) (string, any) {
		return data.Affixes[i].InternalID, data.Affixes[i]
	}); err != nil {
		return err
	}
	if err := insertPayloads(ctx, tx, "aspects", len(data.Aspects), func(i int) (string, any) {
		return data.Aspects[i].InternalID, data.Aspects[i]
	}); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit catalog")
}

func insertPayloads(ctx context.Context, tx *sql.Tx, table string, n int, row func(int) (string, any)) error {
	for i := 0; i < n; i++ {
		id, v := row(i)
		payload, err := json.Marshal(v)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal %s %s", table, id)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (internal_id, payload) VALUES (?, ?)",
			id, string(payload),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s %s", table, id)
		}
	}
	return nil
}

// LoadCatalog reads the full reference data set.
func (s *SQLiteStore) LoadCatalog(ctx context.Context) (*CatalogData, error) {
	data := &CatalogData{}

	rows, err := s.db.QueryContext(ctx, "SELECT internal_id, name FROM classes ORDER BY internal_id")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query classes")
	}
	defer rows.Close()
	for rows.Next() {
		var cl model.Class
		if err := rows.Scan(&cl.InternalID, &cl.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan class")
		}
		data.Classes = append(data.Classes, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate classes")
	}

	if err := loadPayloads(ctx, s.db, "item_types", func(payload []byte) error {
		var it model.ItemType
		if err := json.Unmarshal(payload, &it); err != nil {
			return err
		}
		data.ItemTypes = append(data.ItemTypes, it)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadPayloads(ctx, s.db, "affixes", func(payload []byte) error {
		var a model.CatalogAffix
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		data.Affixes = append(data.Affixes, a)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := loadPayloads(ctx, s.db, "aspects", func(payload []byte) error {
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

func loadPayloads(ctx context.Context, db *sql.DB, table string, apply func([]byte) error) error {
	rows, err := db.QueryContext(ctx, "SELECT payload FROM "+table+" ORDER BY internal_id")
	if err != nil {
		return eris.Wrapf(err, "sqlite: query %s", table)
	}
	defer rows.Close()
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return eris.Wrapf(err, "sqlite: scan %s", table)
		}
		if err := apply(payload); err != nil {
			return eris.Wrapf(err, "sqlite: decode %s", table)
		}
	}
	return eris.Wrapf(rows.Err(), "sqlite: iterate %s", table)
}

// SaveComparison appends one comparison to the history.
func (s *SQLiteStore) SaveComparison(ctx context.Context, res *model.ComparisonResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comparison")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO comparisons (id, build_name, winner, score_a, score_b, delta, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.BuildName, string(res.Winner),
		res.ScoreA.Total, res.ScoreB.Total, res.Delta,
		string(payload), res.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert comparison")
}

// ListComparisons returns history entries, newest first.
func (s *SQLiteStore) ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonResult, error) {
	query := "SELECT payload FROM comparisons"
	var args []any
	if filter.BuildName != "" {
		query += " WHERE build_name = ?"
		args = append(args, filter.BuildName)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comparison")
		}
		var res model.ComparisonResult
		if err := json.Unmarshal(payload, &res); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode comparison")
		}
		out = append(out, res)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate comparisons")
}
