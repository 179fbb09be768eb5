// Package syncqueue is the persisted log of mutations awaiting their
// remote mirror. The log lives in the local store under the reserved
// pendingItems key and is replayed in insertion order when a trigger
// fires (focus, connectivity transition, manual refresh) - never by a
// background timer.
package syncqueue

import (
	"context"
	"fmt"
	"log/slog"

	"kapesync/internal/localstore"
	"kapesync/internal/model"
	"kapesync/internal/remote"
)

// Queue wraps the reserved pendingItems key with FIFO semantics.
// All mutation of the key goes through read-modify-write on the
// injected store; the queue itself holds no state.
type Queue struct {
	store *localstore.Store
}

// New creates a queue over the given store.
func New(store *localstore.Store) *Queue {
	return &Queue{store: store}
}

// Enqueue appends a mutation to the back of the queue: read the
// current list, append, write the whole list back.
func (q *Queue) Enqueue(ctx context.Context, m model.PendingMutation) error {
	list, err := q.store.PendingMutations(ctx)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	list = append(list, m)
	if err := q.store.SavePendingMutations(ctx, list); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	slog.Info("mutation queued",
		"id", m.ID,
		"type", m.Type,
		"depth", len(list),
	)
	return nil
}

// Len returns the current queue depth.
func (q *Queue) Len(ctx context.Context) (int, error) {
	list, err := q.store.PendingMutations(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Pending returns the queue contents in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]model.PendingMutation, error) {
	return q.store.PendingMutations(ctx)
}

// DrainResult summarizes one replay pass.
type DrainResult struct {
	Attempted int
	Applied   int
	Failed    int
	// OrderRemoteIDs maps client order ids to the remote ids assigned
	// while replaying CREATE_ORDER mutations. The coordinator uses it
	// to backfill local receipts after the pass.
	OrderRemoteIDs map[string]string
	// ItemRemoteIDs, CategoryRemoteIDs and CupRemoteIDs map client ids
	// to remote ids for catalog CREATE mutations applied this pass. The
	// coordinator flips the cached records to remote origin with them.
	ItemRemoteIDs     map[string]string
	CategoryRemoteIDs map[string]string
	CupRemoteIDs      map[string]string
	// CatalogTouched is true when any item/category/cup mutation was
	// applied, signaling the coordinator to refresh its caches.
	CatalogTouched bool
}

// Drain replays every queued mutation against the gateway in insertion
// order. Successful entries are removed; failed entries stay with
// retryCount incremented, relative order preserved. The shortened list
// is written back exactly once after the whole pass so a crash
// mid-pass can at worst replay an already-mirrored mutation - which
// the gateway's id-keyed upserts absorb.
//
// There is deliberately no backoff and no retry cap: a mutation is
// retried on every trigger until it succeeds.
func (q *Queue) Drain(ctx context.Context, gw remote.Gateway) (DrainResult, error) {
	list, err := q.store.PendingMutations(ctx)
	if err != nil {
		return DrainResult{}, fmt.Errorf("drain: %w", err)
	}
	if len(list) == 0 {
		return DrainResult{OrderRemoteIDs: map[string]string{}}, nil
	}

	res := DrainResult{
		Attempted:         len(list),
		OrderRemoteIDs:    make(map[string]string),
		ItemRemoteIDs:     make(map[string]string),
		CategoryRemoteIDs: make(map[string]string),
		CupRemoteIDs:      make(map[string]string),
	}

	var survivors []model.PendingMutation
	for i := range list {
		m := list[i]
		serverID, err := apply(ctx, gw, &m)
		if err != nil {
			m.RetryCount++
			survivors = append(survivors, m)
			res.Failed++
			slog.Warn("replay failed, mutation retained",
				"id", m.ID,
				"type", m.Type,
				"retry_count", m.RetryCount,
				"error", err,
			)
			continue
		}

		res.Applied++
		if serverID != "" {
			m.ServerID = serverID
		}
		switch m.Type {
		case model.MutationCreateOrder:
			if o, err := m.Order(); err == nil && serverID != "" {
				res.OrderRemoteIDs[o.OrderID] = serverID
			}
		case model.MutationUpdateOrder:
			// No backfill needed; the order already carries a remote id
			// or will get one from its CREATE replay.
		case model.MutationCreateItem:
			if it, err := m.Item(); err == nil && serverID != "" {
				res.ItemRemoteIDs[it.ID] = serverID
			}
			res.CatalogTouched = true
		case model.MutationCreateCategory:
			if cat, err := m.Category(); err == nil && serverID != "" {
				res.CategoryRemoteIDs[cat.ID] = serverID
			}
			res.CatalogTouched = true
		case model.MutationCreateCup:
			if cup, err := m.Cup(); err == nil && serverID != "" {
				res.CupRemoteIDs[cup.ID] = serverID
			}
			res.CatalogTouched = true
		default:
			res.CatalogTouched = true
		}
		slog.Info("mutation replayed",
			"id", m.ID,
			"type", m.Type,
			"server_id", serverID,
		)
	}

	// One write for the whole pass, not per item, to avoid
	// partial-write races against concurrent enqueues.
	if survivors == nil {
		survivors = []model.PendingMutation{}
	}
	if err := q.store.SavePendingMutations(ctx, survivors); err != nil {
		return res, fmt.Errorf("drain: persist survivors: %w", err)
	}

	return res, nil
}

// apply executes a single mutation against the gateway. Returns the
// remote-assigned id for create operations, empty otherwise.
func apply(ctx context.Context, gw remote.Gateway, m *model.PendingMutation) (string, error) {
	switch m.Type {
	case model.MutationCreateItem:
		it, err := m.Item()
		if err != nil {
			return "", err
		}
		return gw.CreateItem(ctx, it)
	case model.MutationUpdateItem:
		it, err := m.Item()
		if err != nil {
			return "", err
		}
		return "", gw.UpdateItem(ctx, it)
	case model.MutationDeleteItem:
		it, err := m.Item()
		if err != nil {
			return "", err
		}
		return "", gw.DeleteItem(ctx, it.ID)

	case model.MutationCreateCategory:
		c, err := m.Category()
		if err != nil {
			return "", err
		}
		return gw.CreateCategory(ctx, c)
	case model.MutationUpdateCategory:
		c, err := m.Category()
		if err != nil {
			return "", err
		}
		return "", gw.UpdateCategory(ctx, c)
	case model.MutationDeleteCategory:
		c, err := m.Category()
		if err != nil {
			return "", err
		}
		return "", gw.DeleteCategory(ctx, c.ID)

	case model.MutationCreateCup:
		c, err := m.Cup()
		if err != nil {
			return "", err
		}
		return gw.CreateCup(ctx, c)
	case model.MutationUpdateCup:
		c, err := m.Cup()
		if err != nil {
			return "", err
		}
		return "", gw.UpdateCup(ctx, c)
	case model.MutationDeleteCup:
		c, err := m.Cup()
		if err != nil {
			return "", err
		}
		return "", gw.DeleteCup(ctx, c.ID)

	case model.MutationCreateOrder:
		o, err := m.Order()
		if err != nil {
			return "", err
		}
		return gw.CreateOrder(ctx, o)
	case model.MutationUpdateOrder:
		o, err := m.Order()
		if err != nil {
			return "", err
		}
		return "", gw.UpdateOrder(ctx, o)

	default:
		return "", fmt.Errorf("unknown mutation type %q", m.Type)
	}
}
