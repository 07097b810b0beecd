package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"
)

const kvSchema = `
CREATE TABLE IF NOT EXISTS strata_kv (
    k TEXT PRIMARY KEY,
    v TEXT NOT NULL,
    seq INTEGER
);
CREATE INDEX IF NOT EXISTS idx_strata_kv_seq ON strata_kv(seq);
`

// KeyValueDriver persists records as JSON documents under namespaced
// keys (kv:<entity>:<id>) in a SQLite table. seq preserves insertion
// order so reads replay records in write order.
type KeyValueDriver struct {
	db *sql.DB
}

// NewKeyValueDriver opens (or creates) the backing SQLite database.
// Use ":memory:" for an ephemeral store.
func NewKeyValueDriver(dsn string) (*KeyValueDriver, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open key-value store")
	}
	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create key-value schema")
	}
	return &KeyValueDriver{db: db}, nil
}

// Close closes the backing database.
func (d *KeyValueDriver) Close() error {
	return d.db.Close()
}

func (d *KeyValueDriver) Kind() Kind { return KindKeyValue }

func (d *KeyValueDriver) prefix(t Target) string {
	return t.Location() + ":"
}

func (d *KeyValueDriver) Read(ctx context.Context, t Target) ([]map[string]any, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT v FROM strata_kv WHERE k LIKE ? ESCAPE '\' ORDER BY seq, k`,
		likePattern(d.prefix(t)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(doc), &record); err != nil {
			return nil, errors.Wrap(err, "decode key-value document")
		}
		CastRecord(record, t.Types)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (d *KeyValueDriver) Append(ctx context.Context, t Target, record map[string]any) error {
	key, ok := t.Key(record)
	if !ok {
		return ErrMissingKey
	}
	doc, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO strata_kv (k, v, seq)
		 VALUES (?, ?, COALESCE((SELECT MAX(seq) FROM strata_kv), 0) + 1)`,
		d.prefix(t)+key, string(doc))
	return err
}

func (d *KeyValueDriver) Replace(ctx context.Context, t Target, records []map[string]any) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM strata_kv WHERE k LIKE ? ESCAPE '\'`,
		likePattern(d.prefix(t))); err != nil {
		return err
	}
	for i, record := range records {
		key, ok := t.Key(record)
		if !ok {
			return ErrMissingKey
		}
		doc, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO strata_kv (k, v, seq) VALUES (?, ?, ?)`,
			d.prefix(t)+key, string(doc), i+1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *KeyValueDriver) Snapshot(ctx context.Context, t Target) (*Snapshot, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT k, v FROM strata_kv WHERE k LIKE ? ESCAPE '\' ORDER BY seq, k`,
		likePattern(d.prefix(t)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{Exists: true, Pairs: map[string]string{}}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		snap.Pairs[k] = v
	}
	return snap, rows.Err()
}

func (d *KeyValueDriver) Restore(ctx context.Context, t Target, snap *Snapshot) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM strata_kv WHERE k LIKE ? ESCAPE '\'`,
		likePattern(d.prefix(t))); err != nil {
		return err
	}
	if snap != nil {
		i := 0
		for k, v := range snap.Pairs {
			i++
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO strata_kv (k, v, seq) VALUES (?, ?, ?)`, k, v, i); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// likePattern escapes LIKE metacharacters in the prefix and appends the
// wildcard.
func likePattern(prefix string) string {
	escaped := make([]byte, 0, len(prefix)+2)
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if c == '%' || c == '_' || c == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, c)
	}
	return string(escaped) + "%"
}
