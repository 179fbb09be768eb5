package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MutationType tags a PendingMutation payload. The tag decides both the
// remote collection and the operation applied during replay.
type MutationType string

const (
	MutationCreateItem     MutationType = "CREATE_ITEM"
	MutationUpdateItem     MutationType = "UPDATE_ITEM"
	MutationDeleteItem     MutationType = "DELETE_ITEM"
	MutationCreateCategory MutationType = "CREATE_CATEGORY"
	MutationUpdateCategory MutationType = "UPDATE_CATEGORY"
	MutationDeleteCategory MutationType = "DELETE_CATEGORY"
	MutationCreateCup      MutationType = "CREATE_CUP"
	MutationUpdateCup      MutationType = "UPDATE_CUP"
	MutationDeleteCup      MutationType = "DELETE_CUP"
	MutationCreateOrder    MutationType = "CREATE_ORDER"
	MutationUpdateOrder    MutationType = "UPDATE_ORDER"
)

// knownMutationTypes is the closed set accepted on decode. Unknown tags
// in persisted data fail fast instead of propagating zero values.
var knownMutationTypes = map[MutationType]bool{
	MutationCreateItem:     true,
	MutationUpdateItem:     true,
	MutationDeleteItem:     true,
	MutationCreateCategory: true,
	MutationUpdateCategory: true,
	MutationDeleteCategory: true,
	MutationCreateCup:      true,
	MutationUpdateCup:      true,
	MutationDeleteCup:      true,
	MutationCreateOrder:    true,
	MutationUpdateOrder:    true,
}

// Valid reports whether t is one of the known mutation tags.
func (t MutationType) Valid() bool {
	return knownMutationTypes[t]
}

// PendingMutation is a queued, not-yet-confirmed remote write.
//
// Lifecycle: appended by the coordinator when a mirror attempt is
// skipped (offline/demo) or fails (online but rejected/timed out);
// read in bulk by Drain; removed from the queue only after its
// mirrored write is confirmed. On a failed replay attempt RetryCount
// is incremented and the mutation stays queued. There is no backoff
// and no retry cap.
type PendingMutation struct {
	ID         string          `json:"id" validate:"required"`
	Type       MutationType    `json:"type" validate:"required"`
	Data       json.RawMessage `json:"data" validate:"required"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retryCount" validate:"gte=0"`
	ServerID   string          `json:"serverId,omitempty"`
}

// NewMutation wraps a typed payload into a PendingMutation envelope.
// The payload must marshal cleanly; a marshal failure here is a
// programming error surfaced immediately, not persisted.
func NewMutation(t MutationType, payload any) (PendingMutation, error) {
	if !t.Valid() {
		return PendingMutation{}, fmt.Errorf("new mutation: unknown type %q", t)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return PendingMutation{}, fmt.Errorf("new mutation %s: marshal payload: %w", t, err)
	}
	return PendingMutation{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Item decodes the payload of an item mutation.
func (m *PendingMutation) Item() (CatalogItem, error) {
	var it CatalogItem
	if err := m.decode(&it); err != nil {
		return CatalogItem{}, err
	}
	return it, nil
}

// Category decodes the payload of a category mutation.
func (m *PendingMutation) Category() (Category, error) {
	var c Category
	if err := m.decode(&c); err != nil {
		return Category{}, err
	}
	return c, nil
}

// Cup decodes the payload of a cup mutation.
func (m *PendingMutation) Cup() (CupType, error) {
	var c CupType
	if err := m.decode(&c); err != nil {
		return CupType{}, err
	}
	return c, nil
}

// Order decodes the payload of an order mutation.
func (m *PendingMutation) Order() (Order, error) {
	var o Order
	if err := m.decode(&o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (m *PendingMutation) decode(dst any) error {
	if !m.Type.Valid() {
		return fmt.Errorf("mutation %s: unknown type %q", m.ID, m.Type)
	}
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("mutation %s (%s): decode payload: %w", m.ID, m.Type, err)
	}
	return nil
}
