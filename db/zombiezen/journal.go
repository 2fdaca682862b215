// Package zombiezen implements the db interfaces on zombiezen.com/go/sqlite.
package zombiezen

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/migrations"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Verify interface implementations
var _ db.DbJournal = (*Journal)(nil)

// takeTimeout bounds waiting for a pooled connection.
const takeTimeout = 5 * time.Second

type Journal struct {
	pool   *sqlitex.Pool
	closed atomic.Bool
}

// NewJournal opens (creating if needed) the SQLite file at path and
// applies the journal schema.
func NewJournal(path string, poolSize int) (*Journal, error) {
	if poolSize < 1 {
		poolSize = 2
	}
	pool, err := sqlitex.NewPool("file:"+path, sqlitex.PoolOptions{
		PoolSize: poolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("journal: failed to open %s: %w", path, err)
	}

	j := &Journal{pool: pool}
	if err := j.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	script, err := migrations.JournalScript()
	if err != nil {
		return fmt.Errorf("journal: failed to read schema: %w", err)
	}
	conn, put, err := j.take()
	if err != nil {
		return err
	}
	defer put()
	if err := sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return fmt.Errorf("journal: failed to apply schema: %w", err)
	}
	return nil
}

func (j *Journal) take() (*sqlite.Conn, func(), error) {
	if j.closed.Load() {
		return nil, nil, db.ErrJournalClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), takeTimeout)
	conn, err := j.pool.Take(ctx)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	return conn, func() {
		j.pool.Put(conn)
		cancel()
	}, nil
}

func (j *Journal) InsertRebuild(r db.Rebuild) (int64, error) {
	conn, put, err := j.take()
	if err != nil {
		return 0, err
	}
	defer put()

	err = sqlitex.Execute(conn,
		`INSERT INTO rebuilds
			(snapshot_id, cause, outcome, started, duration_ms, entries, files, dropped, signature, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				r.SnapshotID,
				r.Trigger,
				r.Outcome,
				db.TimeFormat(r.Started),
				r.DurationMs,
				r.Entries,
				r.Files,
				r.Dropped,
				r.Signature,
				r.Error,
			},
		})
	if err != nil {
		return 0, fmt.Errorf("failed to insert rebuild: %w", err)
	}
	return conn.LastInsertRowID(), nil
}

func (j *Journal) ListRebuilds(limit int) ([]db.Rebuild, error) {
	if limit < 1 {
		return nil, nil
	}
	conn, put, err := j.take()
	if err != nil {
		return nil, err
	}
	defer put()

	var out []db.Rebuild
	err = sqlitex.Execute(conn,
		`SELECT id, snapshot_id, cause, outcome, started, duration_ms, entries, files, dropped, signature, error
		FROM rebuilds
		ORDER BY id DESC
		LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				started, err := db.TimeParse(stmt.GetText("started"))
				if err != nil {
					return fmt.Errorf("invalid started time for rebuild %d: %w", stmt.GetInt64("id"), err)
				}
				out = append(out, db.Rebuild{
					ID:         stmt.GetInt64("id"),
					SnapshotID: stmt.GetText("snapshot_id"),
					Trigger:    stmt.GetText("cause"),
					Outcome:    stmt.GetText("outcome"),
					Started:    started,
					DurationMs: stmt.GetInt64("duration_ms"),
					Entries:    int(stmt.GetInt64("entries")),
					Files:      int(stmt.GetInt64("files")),
					Dropped:    int(stmt.GetInt64("dropped")),
					Signature:  stmt.GetText("signature"),
					Error:      stmt.GetText("error"),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list rebuilds: %w", err)
	}
	return out, nil
}

func (j *Journal) Prune(keep int) (int, error) {
	conn, put, err := j.take()
	if err != nil {
		return 0, err
	}
	defer put()

	err = sqlitex.Execute(conn,
		`DELETE FROM rebuilds
		WHERE id NOT IN (SELECT id FROM rebuilds ORDER BY id DESC LIMIT ?)`,
		&sqlitex.ExecOptions{Args: []any{keep}})
	if err != nil {
		return 0, fmt.Errorf("failed to prune rebuilds: %w", err)
	}
	return conn.Changes(), nil
}

// Close closes the pool. It is safe to call more than once.
func (j *Journal) Close() error {
	if !j.closed.CompareAndSwap(false, true) {
		return nil
	}
	return j.pool.Close()
}
