package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"kapesync/internal/model"
)

// Reserved keys. Names are preserved from the source system for
// storage compatibility; renaming one orphans existing device data.
const (
	KeyPendingReceipts  = "pendingReceipts"
	KeyPendingMutations = "pendingItems"
	KeyCachedItems      = "cachedItems"
	KeyCachedCategories = "cachedCategories"
	KeyCachedCups       = "cachedCups"
	KeyCurrentUser      = "currentUser"
	KeyBluetooth        = "bluetoothConnection"
)

// Typed accessors. Every read validates the decoded records so
// malformed persisted data fails fast at this boundary instead of
// propagating zero values into the UI; every write validates before
// touching disk.

func getList[T any](ctx context.Context, s *Store, key string) ([]T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if err := model.CheckAll(list); err != nil {
		return nil, fmt.Errorf("corrupt %s: %w", key, err)
	}
	return list, nil
}

func setList[T any](ctx context.Context, s *Store, key string, list []T) error {
	if err := model.CheckAll(list); err != nil {
		return fmt.Errorf("refuse to persist %s: %w", key, err)
	}
	if list == nil {
		list = []T{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// PendingReceipts returns all locally saved orders, oldest first.
func (s *Store) PendingReceipts(ctx context.Context) ([]model.Order, error) {
	return getList[model.Order](ctx, s, KeyPendingReceipts)
}

// SavePendingReceipts replaces the receipts list wholesale. Callers
// append via read-modify-write, never by blind overwrite.
func (s *Store) SavePendingReceipts(ctx context.Context, orders []model.Order) error {
	return setList(ctx, s, KeyPendingReceipts, orders)
}

// PendingMutations returns the sync queue in insertion order.
func (s *Store) PendingMutations(ctx context.Context) ([]model.PendingMutation, error) {
	return getList[model.PendingMutation](ctx, s, KeyPendingMutations)
}

// SavePendingMutations replaces the sync queue wholesale.
func (s *Store) SavePendingMutations(ctx context.Context, ms []model.PendingMutation) error {
	return setList(ctx, s, KeyPendingMutations, ms)
}

// CachedItems returns the last known catalog items (local + mirrored).
func (s *Store) CachedItems(ctx context.Context) ([]model.CatalogItem, error) {
	return getList[model.CatalogItem](ctx, s, KeyCachedItems)
}

// SaveCachedItems replaces the cached item catalog.
func (s *Store) SaveCachedItems(ctx context.Context, items []model.CatalogItem) error {
	return setList(ctx, s, KeyCachedItems, items)
}

// CachedCategories returns the last known categories.
func (s *Store) CachedCategories(ctx context.Context) ([]model.Category, error) {
	return getList[model.Category](ctx, s, KeyCachedCategories)
}

// SaveCachedCategories replaces the cached categories.
func (s *Store) SaveCachedCategories(ctx context.Context, cats []model.Category) error {
	return setList(ctx, s, KeyCachedCategories, cats)
}

// CachedCups returns the last known cup records.
func (s *Store) CachedCups(ctx context.Context) ([]model.CupType, error) {
	return getList[model.CupType](ctx, s, KeyCachedCups)
}

// SaveCachedCups replaces the cached cup records.
func (s *Store) SaveCachedCups(ctx context.Context, cups []model.CupType) error {
	return setList(ctx, s, KeyCachedCups, cups)
}

// CurrentUser returns the session marker, or ok=false when logged out.
func (s *Store) CurrentUser(ctx context.Context) (model.User, bool, error) {
	raw, ok, err := s.Get(ctx, KeyCurrentUser)
	if err != nil || !ok {
		return model.User{}, false, err
	}
	var u model.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return model.User{}, false, fmt.Errorf("decode %s: %w", KeyCurrentUser, err)
	}
	if err := model.Check(&u); err != nil {
		return model.User{}, false, fmt.Errorf("corrupt %s: %w", KeyCurrentUser, err)
	}
	return u, true, nil
}

// SetCurrentUser stores the session marker.
func (s *Store) SetCurrentUser(ctx context.Context, u model.User) error {
	if err := model.Check(&u); err != nil {
		return fmt.Errorf("refuse to persist %s: %w", KeyCurrentUser, err)
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyCurrentUser, err)
	}
	return s.Set(ctx, KeyCurrentUser, raw)
}

// ClearCurrentUser logs the device out.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	return s.Delete(ctx, KeyCurrentUser)
}

// BluetoothPairing returns printer pairing metadata. The engine stores
// this for the printing collaborator and never interprets it.
func (s *Store) BluetoothPairing(ctx context.Context) (model.BluetoothPairing, bool, error) {
	raw, ok, err := s.Get(ctx, KeyBluetooth)
	if err != nil || !ok {
		return model.BluetoothPairing{}, false, err
	}
	var p model.BluetoothPairing
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.BluetoothPairing{}, false, fmt.Errorf("decode %s: %w", KeyBluetooth, err)
	}
	return p, true, nil
}

// SetBluetoothPairing stores printer pairing metadata verbatim.
func (s *Store) SetBluetoothPairing(ctx context.Context, p model.BluetoothPairing) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyBluetooth, err)
	}
	return s.Set(ctx, KeyBluetooth, raw)
}
