package cli

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"

	"kapesync/internal/model"
)

func TestFormatPHP(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"whole", 85, "₱85.00"},
		{"cents", 99.5, "₱99.50"},
		{"zero", 0, "₱0.00"},
		{"thousands", 1250, "₱1,250.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatPHP(tt.in))
		})
	}
}

func TestRenderReceiptGolden(t *testing.T) {
	o := model.Order{
		OrderID:      "KS-1700000000000-1",
		CustomerName: "Maria",
		Items: []model.OrderLine{
			{Name: "Americano", Quantity: 2, Price: 85},
			{Name: "Latte", Quantity: 1, Price: 120, Cancelled: true},
		},
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Status:    model.OrderUnpaid,
		OrderType: model.OrderTakeOut,
		CupsUsed:  2,
	}
	model.ComputeTotals(&o)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "receipt_takeout_queued", []byte(RenderReceipt(o)))
}

func TestRenderReceiptSyncedOmitsNotice(t *testing.T) {
	o := model.Order{
		OrderID:   "KS-1700000000000-2",
		Items:     []model.OrderLine{{Name: "Mocha", Quantity: 1, Price: 140}},
		Timestamp: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Status:    model.OrderPaid,
		OrderType: model.OrderDineIn,
		RemoteID:  "srv-0001",
	}
	model.ComputeTotals(&o)

	got := RenderReceipt(o)
	assert.NotContains(t, got, "not yet synced")
	assert.Contains(t, got, "Status: paid")
	assert.NotContains(t, got, "Cups used")
}
