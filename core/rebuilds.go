package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/devilelephant/blacklist/db"
	"github.com/devilelephant/blacklist/notify"
	"github.com/devilelephant/blacklist/registry"
)

// RecordRebuild is the registry hook of the App: it updates the metrics
// and appends the attempt to the journal, pruning it to the configured
// size. Failures are also sent to the notifier, except rebuilds cancelled
// by a shutdown.
func (a *App) RecordRebuild(ev registry.Event) {
	if a.metrics != nil {
		a.metrics.ObserveRebuild(ev)
	}

	r := db.Rebuild{
		Trigger:    ev.Trigger,
		Outcome:    db.OutcomeSuccess,
		Started:    ev.Started,
		DurationMs: ev.Duration.Milliseconds(),
	}
	if ev.Err != nil {
		r.Outcome = db.OutcomeFailure
		r.Error = ev.Err.Error()
		if errors.Is(ev.Err, context.Canceled) {
			a.logger.Info("Rebuild cancelled, no alarm sent", "trigger", ev.Trigger)
		} else {
			a.notifyFailure(ev)
		}
	} else {
		r.SnapshotID = ev.Snapshot.ID
		r.Entries = ev.Snapshot.Entries
		r.Files = len(ev.Snapshot.Files)
		r.Dropped = ev.Snapshot.Dropped
		r.Signature = ev.Snapshot.Signature
	}
	a.journalWrite(r)
}

func (a *App) notifyFailure(ev registry.Event) {
	if a.notifier == nil {
		return
	}
	fields := map[string]any{
		"trigger":  ev.Trigger,
		"error":    ev.Err.Error(),
		"duration": ev.Duration.String(),
	}
	if a.registry != nil {
		if cur := a.registry.Current(); cur != nil {
			fields["serving"] = cur.ID
		}
	}
	err := a.notifier.Send(context.Background(), notify.Notification{
		Timestamp: time.Now(),
		Level:     slog.LevelError,
		Source:    "registry",
		Message:   "Rebuild failed, the previous snapshot keeps serving",
		Fields:    fields,
	})
	if err != nil {
		a.logger.Warn("Failed to send rebuild alarm", "err", err)
	}
}

// RecordBusy accounts a rebuild request rejected with registry.ErrBusy.
func (a *App) RecordBusy(trigger string) {
	if a.metrics != nil {
		a.metrics.ObserveBusy()
	}
	a.journalWrite(db.Rebuild{
		Trigger: trigger,
		Outcome: db.OutcomeBusy,
		Started: time.Now(),
		Error:   registry.ErrBusy.Error(),
	})
}

func (a *App) journalWrite(r db.Rebuild) {
	if a.journal == nil {
		return
	}
	if _, err := a.journal.InsertRebuild(r); err != nil {
		a.logger.Error("Failed to record rebuild in journal", "outcome", r.Outcome, "err", err)
		return
	}
	keep := a.Config().Journal.Keep
	if keep <= 0 {
		return
	}
	if n, err := a.journal.Prune(keep); err != nil {
		a.logger.Error("Failed to prune rebuild journal", "err", err)
	} else if n > 0 {
		a.logger.Debug("Pruned rebuild journal", "removed", n, "keep", keep)
	}
}
