package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists fetch history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Both buckets of a request record at once; queue them on one
	// connection instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// WAL so dashboards can read while requests write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fetch_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT,
			symbol      TEXT NOT NULL,
			bucket      TEXT NOT NULL,
			cache_key   TEXT,
			source      TEXT,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_symbol ON fetch_events(symbol, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordFetch(evt *FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fetch_events
		(timestamp, request_id, symbol, bucket, cache_key, source, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.RequestID, evt.Symbol, evt.Bucket, evt.Key,
		string(evt.Source), evt.Duration.Milliseconds(), evt.Err,
	)
	return err
}

// HitRatio returns the share of bucket resolutions served from cache since
// the given time, and the number of resolutions counted.
func (r *SQLiteRecorder) HitRatio(since time.Time) (float64, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total, hits int
	err := r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN source = ? THEN 1 ELSE 0 END), 0)
		FROM fetch_events WHERE timestamp >= ? AND error = ''`,
		string(SourceCache), since.Unix(),
	).Scan(&total, &hits)
	if err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(hits) / float64(total), total, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
