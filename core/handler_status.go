package core

import (
	"net/http"
	"strconv"
	"time"

	"github.com/devilelephant/blacklist/db"
)

const (
	defaultStatusRebuilds = 10
	maxStatusRebuilds     = 100
)

type snapshotStatus struct {
	ID        string    `json:"id"`
	BuiltAt   time.Time `json:"built_at"`
	Signature string    `json:"signature"`
	Entries   int       `json:"entries"`
	Families  []string  `json:"families"`
	Files     []string  `json:"files"`
	Lines     int       `json:"lines"`
	Dropped   int       `json:"dropped"`
}

type statusData struct {
	State    string          `json:"state"`
	Snapshot *snapshotStatus `json:"snapshot,omitempty"`
	Rebuilds []db.Rebuild    `json:"rebuilds,omitempty"`
}

// StatusHandler reports the registry state, the serving snapshot and the
// most recent journal rows.
// Endpoint: GET {prefix}/status?limit=
// Authenticated: No
// Allowed Mimetype: application/json
func (a *App) StatusHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultStatusRebuilds
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJsonError(w, errorInvalidLimit)
			return
		}
		limit = min(n, maxStatusRebuilds)
	}

	data := statusData{State: a.registry.State().String()}

	if s := a.registry.Current(); s != nil {
		st := &snapshotStatus{
			ID:        s.ID,
			BuiltAt:   s.BuiltAt,
			Signature: s.Signature,
			Entries:   s.Entries,
			Files:     s.Files,
			Lines:     s.Lines,
			Dropped:   s.Dropped,
		}
		for _, f := range s.Families() {
			st.Families = append(st.Families, f.String())
		}
		data.Snapshot = st
	}

	if a.journal != nil && limit > 0 {
		rows, err := a.journal.ListRebuilds(limit)
		if err != nil {
			a.logger.Error("Failed to list rebuilds", "err", err)
			writeJsonError(w, errorJournalUnavailable)
			return
		}
		data.Rebuilds = rows
	}

	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{Status: http.StatusOK, Code: CodeOkStatus, Message: "Registry status"},
		Data:      data,
	})
}
