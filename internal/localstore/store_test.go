package localstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kapesync/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kapesync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesAndReopens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kapesync.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(context.Background(), "k", []byte(`{"a":1}`)))
	require.NoError(t, s.Close())

	// Reopen is idempotent: schema already applied, data survives.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	raw, ok, err := s2.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestGet_MissingKey(t *testing.T) {
	s := openTestStore(t)

	raw, ok, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, raw)
}

func TestSet_LastWriteWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte(`"first"`)))
	require.NoError(t, s.Set(ctx, "k", []byte(`"second"`)))

	raw, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"second"`, string(raw))
}

func TestDelete_AbsentKeyIsNoop(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), "nothing"))
}

func TestKeys_Sorted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "b", []byte(`1`)))
	require.NoError(t, s.Set(ctx, "a", []byte(`2`)))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestPendingReceipts_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Unwritten key reads as an empty list, not an error.
	got, err := s.PendingReceipts(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	orders := []model.Order{{
		OrderID:      "KS-1700000000000-1",
		CustomerName: "Maria",
		Items:        []model.OrderLine{{Name: "Americano", Quantity: 2, Price: 85}},
		Subtotal:     170,
		Total:        170,
		Status:       model.OrderUnpaid,
		OrderType:    model.OrderTakeOut,
		CupsUsed:     2,
	}}
	require.NoError(t, s.SavePendingReceipts(ctx, orders))

	got, err = s.PendingReceipts(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Maria", got[0].CustomerName)
	assert.Equal(t, 170.0, got[0].Subtotal)
}

func TestSavePendingReceipts_RejectsInvalid(t *testing.T) {
	s := openTestStore(t)

	bad := []model.Order{{OrderID: "", Status: model.OrderUnpaid, OrderType: model.OrderDineIn}}
	err := s.SavePendingReceipts(context.Background(), bad)
	require.Error(t, err, "invalid records never reach disk")
}

func TestPendingMutations_CorruptDataFailsFast(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Simulate a torn/foreign write under the reserved key.
	require.NoError(t, s.Set(ctx, KeyPendingMutations, []byte(`{"not":"a list"}`)))

	_, err := s.PendingMutations(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyPendingMutations)
}

func TestReadModifyWrite_AppendPreservesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := model.NewMutation(model.MutationCreateOrder, model.Order{
		OrderID: "KS-1-1", Status: model.OrderUnpaid, OrderType: model.OrderDineIn,
	})
	require.NoError(t, err)
	require.NoError(t, s.SavePendingMutations(ctx, []model.PendingMutation{first}))

	// Second call site appends by reading the current list first.
	list, err := s.PendingMutations(ctx)
	require.NoError(t, err)
	second, err := model.NewMutation(model.MutationCreateItem, model.CatalogItem{
		ID: "itm-1", Name: "Latte", Price: 110, Origin: model.OriginLocal,
	})
	require.NoError(t, err)
	require.NoError(t, s.SavePendingMutations(ctx, append(list, second)))

	list, err = s.PendingMutations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "insertion order preserved")
	assert.Equal(t, second.ID, list[1].ID)
}

func TestCurrentUser_SetGetClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetCurrentUser(ctx, model.User{Username: "cashier1", Role: "staff"}))

	u, ok, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cashier1", u.Username)

	require.NoError(t, s.ClearCurrentUser(ctx))
	_, ok, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBluetoothPairing_StoredVerbatim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	p := model.BluetoothPairing{Connection: "AA:BB:CC:DD:EE:FF", Service: "00001101-0000-1000-8000-00805f9b34fb"}
	require.NoError(t, s.SetBluetoothPairing(ctx, p))

	got, ok, err := s.BluetoothPairing(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	// Raw value is plain JSON the printing collaborator can read.
	raw, ok, err := s.Get(ctx, KeyBluetooth)
	require.NoError(t, err)
	require.True(t, ok)
	var m map[string]string
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, p.Connection, m["bluetoothConnection"])
}
