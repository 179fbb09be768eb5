// Package model defines the domain records the sync engine persists
// locally and mirrors to the remote document store. Field names are
// stable: they are the on-disk JSON contract and must not change
// without a localstore migration.
package model

import "time"

// ConnectionMode is the tri-state connectivity decision returned by the
// probe. It is derived fresh on every probe call and never persisted as
// a decision, only surfaced as a UI hint.
type ConnectionMode string

const (
	// ModeOnline means the configured remote backend answered a ping
	// within the probe timeout.
	ModeOnline ConnectionMode = "online"
	// ModeOffline means a backend is configured but unreachable right
	// now (network error, timeout, discovery failure).
	ModeOffline ConnectionMode = "offline"
	// ModeDemo means no backend is configured at all. Distinct from a
	// transient outage: demo mode never probes the network.
	ModeDemo ConnectionMode = "demo"
)

// Origin records which side a catalog record was born on.
// A local record becomes remote-origin once its mirror succeeds and the
// remote id is backfilled; its local identity never changes.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// CatalogItem is a sellable product.
//
// Stocks is decremented optimistically when a line is added to a cart
// and restored when the line is removed before finalize; it is never
// negative (enforced as a ValidationError before any state change).
type CatalogItem struct {
	ID       string  `json:"id" bson:"id" validate:"required"`
	Code     string  `json:"code" bson:"code"`
	Name     string  `json:"name" bson:"name" validate:"required"`
	Price    float64 `json:"price" bson:"price" validate:"gte=0"`
	Category string  `json:"category" bson:"category"`
	Stocks   int     `json:"stocks" bson:"stocks" validate:"gte=0"`
	Status   bool    `json:"status" bson:"status"`
	CupName  string  `json:"cupName,omitempty" bson:"cupName,omitempty"`
	Sales    int     `json:"sales" bson:"sales" validate:"gte=0"`
	Image    string  `json:"image,omitempty" bson:"image,omitempty"`
	Origin   Origin  `json:"origin" bson:"-" validate:"required,oneof=local remote"`
	RemoteID string  `json:"remoteId,omitempty" bson:"-"`
}

// Category groups catalog items. Merged for display by exact
// case-sensitive name, remote-origin preferred.
type Category struct {
	ID         string `json:"id" bson:"id" validate:"required"`
	Name       string `json:"name" bson:"name" validate:"required"`
	Icon       string `json:"icon,omitempty" bson:"icon,omitempty"`
	ItemsCount int    `json:"items_count" bson:"items_count" validate:"gte=0"`
	Origin     Origin `json:"origin" bson:"-" validate:"required,oneof=local remote"`
	RemoteID   string `json:"remoteId,omitempty" bson:"-"`
}

// AllCategoryName is the synthetic category always prepended to merged
// category listings. It carries no backing entity and is never stored.
const AllCategoryName = "All"

// CupType is a cup stock record consumed by take-out orders.
type CupType struct {
	ID       string `json:"id" bson:"id" validate:"required"`
	Name     string `json:"name" bson:"name" validate:"required"`
	Size     string `json:"size,omitempty" bson:"size,omitempty"`
	Stocks   int    `json:"stocks" bson:"stocks" validate:"gte=0"`
	Status   bool   `json:"status" bson:"status"`
	Origin   Origin `json:"origin" bson:"-" validate:"required,oneof=local remote"`
	RemoteID string `json:"remoteId,omitempty" bson:"-"`
}

// OrderStatus values mirrored to the remote orders collection.
type OrderStatus string

const (
	OrderUnpaid    OrderStatus = "unpaid"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderType distinguishes dine-in from take-out. Only take-out orders
// consume cups.
type OrderType string

const (
	OrderDineIn  OrderType = "dine-in"
	OrderTakeOut OrderType = "take-out"
)

// OrderLine is a single line in an order.
//
// A cancelled line is excluded from subtotal/total recomputation and
// from the remotely mirrored payload, but is retained in the local copy
// for audit and display.
type OrderLine struct {
	Name      string  `json:"name" bson:"name" validate:"required"`
	Quantity  int     `json:"quantity" bson:"quantity" validate:"gt=0"`
	Price     float64 `json:"price" bson:"price" validate:"gte=0"`
	Ready     bool    `json:"ready" bson:"ready"`
	Cancelled bool    `json:"cancelled" bson:"cancelled"`
}

// Order is a receipt. OrderID is generated client-side (time-based,
// see engine.OrderIDGenerator) and is the stable join key between the
// local copy and its eventual remote mirror.
type Order struct {
	OrderID       string      `json:"orderId" bson:"orderId" validate:"required"`
	CustomerName  string      `json:"customerName" bson:"customerName"`
	Items         []OrderLine `json:"items" bson:"items" validate:"dive"`
	Subtotal      float64     `json:"subtotal" bson:"subtotal" validate:"gte=0"`
	Total         float64     `json:"total" bson:"total" validate:"gte=0"`
	Timestamp     time.Time   `json:"timestamp" bson:"timestamp"`
	Status        OrderStatus `json:"status" bson:"status" validate:"required,oneof=unpaid paid cancelled"`
	OrderType     OrderType   `json:"order_type" bson:"order_type" validate:"required,oneof=dine-in take-out"`
	CupsUsed      int         `json:"cups_used" bson:"cups_used" validate:"gte=0"`
	AllItemsReady bool        `json:"allItemsReady" bson:"allItemsReady"`
	RemoteID      string      `json:"remoteId,omitempty" bson:"-"`
}

// ActiveLines returns the non-cancelled lines of the order.
// This is the set that contributes to totals and to the remote mirror.
func (o *Order) ActiveLines() []OrderLine {
	lines := make([]OrderLine, 0, len(o.Items))
	for _, l := range o.Items {
		if !l.Cancelled {
			lines = append(lines, l)
		}
	}
	return lines
}

// MirrorCopy returns the order as it is sent to the remote store:
// identical to the local copy except cancelled lines are stripped.
func (o *Order) MirrorCopy() Order {
	m := *o
	m.Items = o.ActiveLines()
	return m
}

// User is the session marker consumed by the UI router to decide
// between authenticated and login routes. The engine only stores it.
type User struct {
	Username string    `json:"username" validate:"required"`
	Role     string    `json:"role,omitempty"`
	LoggedAt time.Time `json:"loggedAt"`
}

// BluetoothPairing is pairing metadata consumed by the printing
// collaborator. The engine persists it verbatim and never mutates it.
type BluetoothPairing struct {
	Connection string `json:"bluetoothConnection,omitempty"`
	Service    string `json:"bluetoothService,omitempty"`
}
