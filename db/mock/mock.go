package mock

import (
	"sync"

	"github.com/devilelephant/blacklist/db"
)

// Compile-time check to ensure Journal implements the DbJournal interface
var _ db.DbJournal = (*Journal)(nil)

// Journal is an in-memory db.DbJournal for tests.
// Set the Err fields to make the corresponding method fail.
type Journal struct {
	mu     sync.Mutex
	rows   []db.Rebuild
	lastID int64

	InsertErr error
	ListErr   error
}

func (m *Journal) InsertRebuild(r db.Rebuild) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	m.lastID++
	r.ID = m.lastID
	m.rows = append(m.rows, r)
	return r.ID, nil
}

func (m *Journal) ListRebuilds(limit int) ([]db.Rebuild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []db.Rebuild
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

func (m *Journal) Prune(keep int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) <= keep {
		return 0, nil
	}
	n := len(m.rows) - keep
	m.rows = append([]db.Rebuild(nil), m.rows[n:]...)
	return n, nil
}

func (m *Journal) Close() error { return nil }

// Rows returns a copy of every recorded row, oldest first.
func (m *Journal) Rows() []db.Rebuild {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]db.Rebuild(nil), m.rows...)
}
