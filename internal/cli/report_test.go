package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kapesync/internal/model"
)

func TestBuildSalesReport(t *testing.T) {
	paid := []model.Order{
		{
			OrderID:   "KS-1-1",
			Total:     290,
			OrderType: model.OrderTakeOut,
			CupsUsed:  2,
			Status:    model.OrderPaid,
			Items: []model.OrderLine{
				{Name: "Americano", Quantity: 2, Price: 85},
				{Name: "Latte", Quantity: 1, Price: 120},
			},
		},
		{
			OrderID: "KS-1-2",
			Total:   85,
			Status:  model.OrderPaid,
			Items: []model.OrderLine{
				{Name: "Americano", Quantity: 1, Price: 85},
				{Name: "Mocha", Quantity: 1, Price: 140, Cancelled: true},
			},
		},
	}

	report := buildSalesReport(paid)
	assert.Equal(t, 2, report.Orders)
	assert.Equal(t, 2, report.CupsUsed)
	assert.Equal(t, float64(375), report.Revenue)

	// Sorted by revenue, cancelled line absent.
	assert.Len(t, report.Lines, 2)
	assert.Equal(t, "Americano", report.Lines[0].Name)
	assert.Equal(t, 3, report.Lines[0].Quantity)
	assert.Equal(t, float64(255), report.Lines[0].Revenue)
	assert.Equal(t, "Latte", report.Lines[1].Name)
}

func TestBuildSalesReportEmpty(t *testing.T) {
	report := buildSalesReport(nil)
	assert.Equal(t, 0, report.Orders)
	assert.Empty(t, report.Lines)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
		wantQty  int
		wantErr  bool
	}{
		{"Americano=2", "Americano", 2, false},
		{"Iced Latte=1", "Iced Latte", 1, false},
		{"Americano", "", 0, true},
		{"=2", "", 0, true},
		{"Americano=two", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, qty, err := parseLine(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantQty, qty)
		})
	}
}
