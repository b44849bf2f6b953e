// Package localstore is the field client's on-device storage: a SQLite file
// holding the cached session, the current job and the offline queue.
package localstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"time"

	"ghost-crew/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Keys of the kv table.
const (
	KeyUser         = "ghost_user"
	KeyToken        = "ghost_token"
	KeyTokenExpires = "ghost_token_expires"
	KeyCurrentJob   = "ghost_current_job"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite file at path and applies pending
// migrations. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "ghost-local.db"
	}
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases alive and serialises writers.
	d.SetMaxOpenConns(1)
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := applyMigrations(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &Store{db: d}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value under key; ok is false when it is absent.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// GetJSON decodes the value under key into v.
func (s *Store) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(raw))
}

// LoadQueue returns the offline queue in the order items were appended.
func (s *Store) LoadQueue(ctx context.Context) ([]models.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, action_type, payload, timestamp FROM offline_queue ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.QueueItem{}
	for rows.Next() {
		var (
			item    models.QueueItem
			action  string
			payload string
			ts      string
		)
		if err := rows.Scan(&item.ID, &action, &payload, &ts); err != nil {
			return nil, err
		}
		item.ActionType = models.ActionType(action)
		item.Payload = json.RawMessage(payload)
		if item.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("queue item %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AppendQueueItem adds one item to the end of the stored queue. Appending an
// id that is already stored is a no-op.
func (s *Store) AppendQueueItem(ctx context.Context, item models.QueueItem) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO offline_queue (id, action_type, payload, timestamp) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		item.ID, string(item.ActionType), string(item.Payload), item.Timestamp.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("append queue item %s: %w", item.ID, err)
	}
	return nil
}

// DeleteQueueItems removes the items with the given ids in one transaction.
// Other rows, including ones written by another process, are left alone.
func (s *Store) DeleteQueueItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `DELETE FROM offline_queue WHERE id = ?`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete queue item %s: %w", id, err)
		}
	}
	return tx.Commit()
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.up\.sql$`)

func applyMigrations(d *sql.DB) error {
	if _, err := d.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`); err != nil {
		return err
	}

	list, err := stdfs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	files := map[int]string{}
	versions := []int{}
	for _, de := range list {
		m := migFileRe.FindStringSubmatch(de.Name())
		if m == nil {
			continue
		}
		var ver int
		if _, err := fmt.Sscanf(m[1], "%04d", &ver); err != nil {
			continue
		}
		files[ver] = "migrations/" + de.Name()
		versions = append(versions, ver)
	}
	sort.Ints(versions)

	for _, v := range versions {
		var applied int
		if err := d.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, v).Scan(&applied); err != nil {
			return err
		}
		if applied > 0 {
			continue
		}
		text, err := migrationsFS.ReadFile(files[v])
		if err != nil {
			return err
		}
		tx, err := d.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(text)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %04d failed: %w", v, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, v); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
