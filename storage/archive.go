// storage/archive.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
)

// Archiver copies the fleet's events into a Store.
type Archiver struct {
	Store     *Store
	SessionID int64
	Interval  time.Duration

	sub *fleet.EventsSubscription
	lg  *log.Logger
}

// NewArchiver subscribes to es immediately, so no events posted after it
// returns are missed even if Run starts later.
func NewArchiver(s *Store, sessionID int64, es *fleet.EventStream, lg *log.Logger) *Archiver {
	return &Archiver{
		Store:     s,
		SessionID: sessionID,
		Interval:  time.Second,
		sub:       es.Subscribe(),
		lg:        lg,
	}
}

// Run writes batches of events until ctx is canceled, then writes any that
// remain and unsubscribes. Write failures are logged and the batch is
// dropped.
func (a *Archiver) Run(ctx context.Context) error {
	defer a.lg.CatchAndReportCrash()
	defer a.sub.Unsubscribe()

	tick := time.NewTicker(a.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.Flush(context.Background())
		case <-tick.C:
			if err := a.Flush(ctx); err != nil && ctx.Err() == nil {
				a.lg.Warn("archiving events", slog.Any("error", err))
			}
		}
	}
}

// Flush writes the events posted since the last write.
func (a *Archiver) Flush(ctx context.Context) error {
	events := a.sub.Get()
	if len(events) == 0 {
		return nil
	}
	a.lg.Debug("archiving events", slog.Int("count", len(events)))
	return a.Store.StoreEvents(ctx, a.SessionID, events)
}
