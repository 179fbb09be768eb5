package cli

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"kapesync/internal/model"
)

var pricePrinter = message.NewPrinter(language.English)

var phpUnit = currency.MustParseISO("PHP")

// formatPHP renders an amount in Philippine pesos with the ₱ symbol.
func formatPHP(v float64) string {
	return pricePrinter.Sprint(currency.Symbol(phpUnit.Amount(v)))
}

const receiptWidth = 38

// RenderReceipt formats an order the way the till prints it. Cancelled
// lines are shown struck through with an x marker and do not count
// toward the total.
func RenderReceipt(o model.Order) string {
	var b strings.Builder
	rule := strings.Repeat("-", receiptWidth)

	center := func(s string) {
		pad := (receiptWidth - len(s)) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + s + "\n")
	}

	center("KAPESYNC")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Order:    %s\n", o.OrderID)
	if o.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", o.CustomerName)
	}
	fmt.Fprintf(&b, "Type:     %s\n", o.OrderType)
	fmt.Fprintf(&b, "Date:     %s\n", o.Timestamp.Format("2006-01-02 15:04"))
	b.WriteString(rule + "\n")

	for _, l := range o.Items {
		marker := " "
		if l.Cancelled {
			marker = "x"
		}
		name := l.Name
		if len(name) > 18 {
			name = name[:18]
		}
		fmt.Fprintf(&b, "%s %-18s %2dx %11s\n", marker, name, l.Quantity, formatPHP(model.LineTotal(l)))
	}

	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-22s %15s\n", "Subtotal", formatPHP(o.Subtotal))
	fmt.Fprintf(&b, "%-22s %15s\n", "TOTAL", formatPHP(o.Total))
	if o.OrderType == model.OrderTakeOut && o.CupsUsed > 0 {
		fmt.Fprintf(&b, "Cups used: %d\n", o.CupsUsed)
	}
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Status: %s", o.Status)
	if o.RemoteID == "" {
		b.WriteString("\n* not yet synced *")
	}
	return b.String()
}
