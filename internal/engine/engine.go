// Package engine is the dual-write coordinator. Every mutation is
// saved locally first, then mirrored to the remote store when the
// probe reports online, or queued for replay otherwise. Reads merge
// the remote catalog with local-only records and fall back to cache
// when offline.
package engine

import (
	"context"
	"log/slog"

	"kapesync/internal/localstore"
	"kapesync/internal/model"
	"kapesync/internal/probe"
	"kapesync/internal/remote"
	"kapesync/internal/syncqueue"
)

// Notice is the user-facing text surfaced when a write lands in the
// queue instead of the remote store.
const Notice = "saved locally, will sync later"

// Coordinator orchestrates local-first writes with remote mirroring.
// All collaborators are injected; the coordinator owns no goroutines
// and replays only when Sync is called.
type Coordinator struct {
	store *localstore.Store
	probe *probe.Probe
	gw    remote.Gateway
	queue *syncqueue.Queue
	ids   OrderIDGenerator
	log   *slog.Logger
}

// Options configures a Coordinator.
type Options struct {
	Store   *localstore.Store
	Probe   *probe.Probe
	Gateway remote.Gateway
	IDs     OrderIDGenerator
	Logger  *slog.Logger
}

// New creates a Coordinator. Gateway may be nil in demo mode; the
// probe then reports demo and every write stays local.
func New(opts Options) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	ids := opts.IDs
	if ids == nil {
		ids = NewTimeGenerator("")
	}
	return &Coordinator{
		store: opts.Store,
		probe: opts.Probe,
		gw:    opts.Gateway,
		queue: syncqueue.New(opts.Store),
		ids:   ids,
		log:   log,
	}
}

// Mode returns the current connectivity mode (probe-cached).
func (c *Coordinator) Mode(ctx context.Context) model.ConnectionMode {
	return c.probe.Mode(ctx)
}

// QueueDepth returns how many mutations await replay.
func (c *Coordinator) QueueDepth(ctx context.Context) (int, error) {
	n, err := c.queue.Len(ctx)
	if err != nil {
		return 0, NewLocalStorageError("read queue", err)
	}
	return n, nil
}

// WriteResult reports where a dual write landed.
type WriteResult struct {
	// RemoteID is the server-assigned id, set only on the mirrored path.
	RemoteID string
	// Queued is true when the mutation went to the replay queue.
	Queued bool
	// Notice carries user-facing text on the queued path, empty otherwise.
	Notice string
	// Err is the classified failure that forced the queued path: a
	// REMOTE_WRITE error after a rejected online attempt, CONNECTIVITY
	// when the probe reported offline, nil when mirrored or in demo.
	Err error
}

// mirrorOrQueue runs the online-attempt half of the dual-write state
// machine. The mutation is already LOCAL_SAVED when this is called.
// attempt performs the remote write and returns the server id (empty
// for non-create operations). Connectivity and remote-write failures
// are swallowed into the queue; only queue persistence itself can
// fail here.
func (c *Coordinator) mirrorOrQueue(ctx context.Context, m model.PendingMutation, attempt func(ctx context.Context) (string, error)) (WriteResult, error) {
	var cause error
	mode := c.probe.Mode(ctx)
	if mode == model.ModeOnline {
		serverID, err := attempt(ctx)
		if err == nil {
			c.log.Info("mutation mirrored",
				"type", m.Type,
				"id", m.ID,
				"server_id", serverID,
			)
			return WriteResult{RemoteID: serverID}, nil
		}
		cause = NewRemoteWriteError(m.ID, err)
		c.log.Warn("remote write failed, queueing",
			"type", m.Type,
			"id", m.ID,
			"error", cause,
		)
		c.probe.Invalidate()
	} else {
		if mode == model.ModeOffline {
			cause = NewConnectivityError("backend unreachable", nil)
		}
		c.log.Info("offline, queueing mutation",
			"type", m.Type,
			"id", m.ID,
			"mode", mode,
		)
	}

	if err := c.queue.Enqueue(ctx, m); err != nil {
		return WriteResult{}, NewLocalStorageError("enqueue mutation", err)
	}
	return WriteResult{Queued: true, Notice: Notice, Err: cause}, nil
}

// SyncReport summarizes one Sync pass.
type SyncReport struct {
	Mode      model.ConnectionMode `json:"mode"`
	Attempted int                  `json:"attempted"`
	Applied   int                  `json:"applied"`
	Failed    int                  `json:"failed"`
	Refreshed bool                 `json:"refreshed"`
}

// Sync is the replay trigger: probe, and when online, drain the queue
// and refresh the catalog caches. It is called from the CLI and on UI
// focus, never from a timer.
func (c *Coordinator) Sync(ctx context.Context) (SyncReport, error) {
	c.probe.Invalidate()
	mode := c.probe.Mode(ctx)
	report := SyncReport{Mode: mode}
	if mode != model.ModeOnline {
		c.log.Info("sync skipped", "mode", mode)
		return report, nil
	}

	res, err := c.queue.Drain(ctx, c.gw)
	if err != nil {
		return report, NewLocalStorageError("drain queue", err)
	}
	report.Attempted = res.Attempted
	report.Applied = res.Applied
	report.Failed = res.Failed

	if len(res.OrderRemoteIDs) > 0 {
		if err := c.backfillReceipts(ctx, res.OrderRemoteIDs); err != nil {
			return report, err
		}
	}

	if err := c.promoteMirrored(ctx, res); err != nil {
		return report, err
	}

	if err := c.refreshCaches(ctx); err != nil {
		// A failed refresh leaves stale caches, not wrong data.
		c.log.Warn("cache refresh failed", "error", err)
	} else {
		report.Refreshed = true
	}

	c.log.Info("sync complete",
		"attempted", report.Attempted,
		"applied", report.Applied,
		"failed", report.Failed,
	)
	return report, nil
}

// backfillReceipts stamps remote ids onto local receipts whose CREATE
// mutations were just applied.
func (c *Coordinator) backfillReceipts(ctx context.Context, ids map[string]string) error {
	receipts, err := c.store.PendingReceipts(ctx)
	if err != nil {
		return NewLocalStorageError("read receipts", err)
	}
	changed := false
	for i := range receipts {
		if rid, ok := ids[receipts[i].OrderID]; ok && receipts[i].RemoteID != rid {
			receipts[i].RemoteID = rid
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := c.store.SavePendingReceipts(ctx, receipts); err != nil {
		return NewLocalStorageError("save receipts", err)
	}
	return nil
}

// promoteMirrored flips cached catalog records to remote origin once
// their CREATE mutations have been replayed, stamping the assigned
// remote ids. Without the flip the next cache refresh would carry each
// record twice, once from the remote read and once as a local-only
// leftover.
func (c *Coordinator) promoteMirrored(ctx context.Context, res syncqueue.DrainResult) error {
	if len(res.ItemRemoteIDs) > 0 {
		items, err := c.store.CachedItems(ctx)
		if err != nil {
			return NewLocalStorageError("read items", err)
		}
		changed := false
		for i := range items {
			if rid, ok := res.ItemRemoteIDs[items[i].ID]; ok {
				items[i].Origin = model.OriginRemote
				items[i].RemoteID = rid
				changed = true
			}
		}
		if changed {
			if err := c.store.SaveCachedItems(ctx, items); err != nil {
				return NewLocalStorageError("save items", err)
			}
		}
	}

	if len(res.CategoryRemoteIDs) > 0 {
		cats, err := c.store.CachedCategories(ctx)
		if err != nil {
			return NewLocalStorageError("read categories", err)
		}
		changed := false
		for i := range cats {
			if rid, ok := res.CategoryRemoteIDs[cats[i].ID]; ok {
				cats[i].Origin = model.OriginRemote
				cats[i].RemoteID = rid
				changed = true
			}
		}
		if changed {
			if err := c.store.SaveCachedCategories(ctx, cats); err != nil {
				return NewLocalStorageError("save categories", err)
			}
		}
	}

	if len(res.CupRemoteIDs) > 0 {
		cups, err := c.store.CachedCups(ctx)
		if err != nil {
			return NewLocalStorageError("read cups", err)
		}
		changed := false
		for i := range cups {
			if rid, ok := res.CupRemoteIDs[cups[i].ID]; ok {
				cups[i].Origin = model.OriginRemote
				cups[i].RemoteID = rid
				changed = true
			}
		}
		if changed {
			if err := c.store.SaveCachedCups(ctx, cups); err != nil {
				return NewLocalStorageError("save cups", err)
			}
		}
	}

	return nil
}

// refreshCaches pulls the remote catalog and stores it for offline
// reads. Local-origin records in the caches are preserved.
func (c *Coordinator) refreshCaches(ctx context.Context) error {
	items, err := c.gw.ActiveItems(ctx)
	if err != nil {
		return err
	}
	cats, err := c.gw.Categories(ctx)
	if err != nil {
		return err
	}
	cups, err := c.gw.Cups(ctx)
	if err != nil {
		return err
	}

	for i := range items {
		items[i].Origin = model.OriginRemote
	}
	for i := range cats {
		cats[i].Origin = model.OriginRemote
	}
	for i := range cups {
		cups[i].Origin = model.OriginRemote
	}

	localItems, err := c.localOnlyItems(ctx)
	if err != nil {
		return err
	}
	localCats, err := c.localOnlyCategories(ctx)
	if err != nil {
		return err
	}
	localCups, err := c.localOnlyCups(ctx)
	if err != nil {
		return err
	}

	if err := c.store.SaveCachedItems(ctx, append(items, localItems...)); err != nil {
		return err
	}
	if err := c.store.SaveCachedCategories(ctx, append(cats, localCats...)); err != nil {
		return err
	}
	if err := c.store.SaveCachedCups(ctx, append(cups, localCups...)); err != nil {
		return err
	}
	c.log.Debug("caches refreshed",
		"items", len(items),
		"categories", len(cats),
		"cups", len(cups),
	)
	return nil
}

func (c *Coordinator) localOnlyItems(ctx context.Context) ([]model.CatalogItem, error) {
	cached, err := c.store.CachedItems(ctx)
	if err != nil {
		return nil, err
	}
	out := cached[:0:0]
	for _, it := range cached {
		if it.Origin == model.OriginLocal {
			out = append(out, it)
		}
	}
	return out, nil
}

func (c *Coordinator) localOnlyCategories(ctx context.Context) ([]model.Category, error) {
	cached, err := c.store.CachedCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := cached[:0:0]
	for _, cat := range cached {
		if cat.Origin == model.OriginLocal {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (c *Coordinator) localOnlyCups(ctx context.Context) ([]model.CupType, error) {
	cached, err := c.store.CachedCups(ctx)
	if err != nil {
		return nil, err
	}
	out := cached[:0:0]
	for _, cup := range cached {
		if cup.Origin == model.OriginLocal {
			out = append(out, cup)
		}
	}
	return out, nil
}
