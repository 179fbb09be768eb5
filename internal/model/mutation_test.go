package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMutation_WrapsPayload(t *testing.T) {
	item := CatalogItem{ID: "itm-1", Name: "Americano", Price: 85, Origin: OriginLocal}

	m, err := NewMutation(MutationCreateItem, item)
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID, "mutation gets a uuid")
	assert.Equal(t, MutationCreateItem, m.Type)
	assert.Zero(t, m.RetryCount)
	assert.WithinDuration(t, time.Now(), m.Timestamp, time.Minute)

	got, err := m.Item()
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestNewMutation_RejectsUnknownType(t *testing.T) {
	_, err := NewMutation(MutationType("DROP_TABLE"), nil)
	assert.Error(t, err)
}

func TestPendingMutation_DecodeWrongShape(t *testing.T) {
	m := PendingMutation{
		ID:   "pm-1",
		Type: MutationCreateOrder,
		Data: json.RawMessage(`"not an object"`),
	}
	_, err := m.Order()
	assert.Error(t, err, "malformed persisted payload fails fast")
}

func TestPendingMutation_DecodeUnknownTag(t *testing.T) {
	m := PendingMutation{
		ID:   "pm-2",
		Type: "UPSERT_ITEM",
		Data: json.RawMessage(`{}`),
	}
	_, err := m.Item()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestMutationType_Valid(t *testing.T) {
	for _, mt := range []MutationType{
		MutationCreateItem, MutationUpdateItem, MutationDeleteItem,
		MutationCreateCategory, MutationUpdateCategory, MutationDeleteCategory,
		MutationCreateCup, MutationUpdateCup, MutationDeleteCup,
		MutationCreateOrder, MutationUpdateOrder,
	} {
		assert.True(t, mt.Valid(), "%s should be known", mt)
	}
	assert.False(t, MutationType("").Valid())
	assert.False(t, MutationType("CREATE_RECEIPT").Valid())
}

func TestPendingMutation_OrderRoundTrip(t *testing.T) {
	o := Order{
		OrderID:      "KS-1700000000000-1",
		CustomerName: "Maria",
		Items: []OrderLine{
			{Name: "Americano", Quantity: 2, Price: 85},
		},
		Subtotal:  170,
		Total:     170,
		Status:    OrderUnpaid,
		OrderType: OrderTakeOut,
		CupsUsed:  2,
	}

	m, err := NewMutation(MutationCreateOrder, o)
	require.NoError(t, err)

	// Envelope survives a persistence round trip.
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var back PendingMutation
	require.NoError(t, json.Unmarshal(raw, &back))

	got, err := back.Order()
	require.NoError(t, err)
	assert.Equal(t, o.OrderID, got.OrderID)
	assert.Equal(t, o.Subtotal, got.Subtotal)
	assert.Equal(t, o.CupsUsed, got.CupsUsed)
}
