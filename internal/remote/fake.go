package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"kapesync/internal/model"
)

// ErrUnavailable is what the fake returns while failure injection is
// armed. It stands in for any transport-level failure.
var ErrUnavailable = errors.New("remote unavailable")

// Fake is an in-memory Gateway for tests: a map per collection, a
// switch to simulate the backend dropping off the network, and call
// counters so tests can assert how often the engine actually went
// remote.
type Fake struct {
	mu sync.Mutex

	items      map[string]model.CatalogItem
	categories map[string]model.Category
	cups       map[string]model.CupType
	orders     map[string]model.Order
	orderSeq   []string // insertion order for OrdersByStatus

	online bool
	nextID int

	WriteCalls int
	ReadCalls  int
	PingCalls  int

	// FailWrites makes write calls fail even while online, simulating
	// a backend that accepts connections but rejects the write.
	FailWrites bool
}

// NewFake returns an online fake with empty collections.
func NewFake() *Fake {
	return &Fake{
		items:      make(map[string]model.CatalogItem),
		categories: make(map[string]model.Category),
		cups:       make(map[string]model.CupType),
		orders:     make(map[string]model.Order),
		online:     true,
	}
}

// SetOnline flips simulated reachability.
func (f *Fake) SetOnline(online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online = online
}

func (f *Fake) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PingCalls++
	if !f.online {
		return ErrUnavailable
	}
	return nil
}

func (f *Fake) checkWrite() error {
	if !f.online {
		return ErrUnavailable
	}
	if f.FailWrites {
		return fmt.Errorf("write rejected")
	}
	return nil
}

func (f *Fake) assignID() string {
	f.nextID++
	return fmt.Sprintf("srv-%04d", f.nextID)
}

func (f *Fake) CreateItem(ctx context.Context, it model.CatalogItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return "", err
	}
	if existing, ok := f.items[it.ID]; ok {
		// Idempotent replay: keep the previously assigned server id.
		it.RemoteID = existing.RemoteID
		f.items[it.ID] = it
		return existing.RemoteID, nil
	}
	it.RemoteID = f.assignID()
	f.items[it.ID] = it
	return it.RemoteID, nil
}

func (f *Fake) UpdateItem(ctx context.Context, it model.CatalogItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	if _, ok := f.items[it.ID]; !ok {
		return fmt.Errorf("item %s not found", it.ID)
	}
	f.items[it.ID] = it
	return nil
}

func (f *Fake) DeleteItem(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	delete(f.items, id)
	return nil
}

func (f *Fake) ActiveItems(ctx context.Context) ([]model.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls++
	if !f.online {
		return nil, ErrUnavailable
	}
	var out []model.CatalogItem
	for _, it := range f.items {
		if it.Status {
			it.Origin = model.OriginRemote
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *Fake) CreateCategory(ctx context.Context, c model.Category) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return "", err
	}
	if existing, ok := f.categories[c.ID]; ok {
		c.RemoteID = existing.RemoteID
		f.categories[c.ID] = c
		return existing.RemoteID, nil
	}
	c.RemoteID = f.assignID()
	f.categories[c.ID] = c
	return c.RemoteID, nil
}

func (f *Fake) UpdateCategory(ctx context.Context, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	if _, ok := f.categories[c.ID]; !ok {
		return fmt.Errorf("category %s not found", c.ID)
	}
	f.categories[c.ID] = c
	return nil
}

func (f *Fake) DeleteCategory(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	delete(f.categories, id)
	return nil
}

func (f *Fake) Categories(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls++
	if !f.online {
		return nil, ErrUnavailable
	}
	var out []model.Category
	for _, c := range f.categories {
		c.Origin = model.OriginRemote
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) CreateCup(ctx context.Context, c model.CupType) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return "", err
	}
	if existing, ok := f.cups[c.ID]; ok {
		c.RemoteID = existing.RemoteID
		f.cups[c.ID] = c
		return existing.RemoteID, nil
	}
	c.RemoteID = f.assignID()
	f.cups[c.ID] = c
	return c.RemoteID, nil
}

func (f *Fake) UpdateCup(ctx context.Context, c model.CupType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	if _, ok := f.cups[c.ID]; !ok {
		return fmt.Errorf("cup %s not found", c.ID)
	}
	f.cups[c.ID] = c
	return nil
}

func (f *Fake) DeleteCup(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	delete(f.cups, id)
	return nil
}

func (f *Fake) Cups(ctx context.Context) ([]model.CupType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls++
	if !f.online {
		return nil, ErrUnavailable
	}
	var out []model.CupType
	for _, c := range f.cups {
		c.Origin = model.OriginRemote
		out = append(out, c)
	}
	return out, nil
}

func (f *Fake) CreateOrder(ctx context.Context, o model.Order) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return "", err
	}
	mirror := o.MirrorCopy()
	if existing, ok := f.orders[o.OrderID]; ok {
		mirror.RemoteID = existing.RemoteID
		f.orders[o.OrderID] = mirror
		return existing.RemoteID, nil
	}
	mirror.RemoteID = f.assignID()
	f.orders[o.OrderID] = mirror
	f.orderSeq = append(f.orderSeq, o.OrderID)
	return mirror.RemoteID, nil
}

func (f *Fake) UpdateOrder(ctx context.Context, o model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WriteCalls++
	if err := f.checkWrite(); err != nil {
		return err
	}
	existing, ok := f.orders[o.OrderID]
	if !ok {
		return fmt.Errorf("order %s not found", o.OrderID)
	}
	mirror := o.MirrorCopy()
	mirror.RemoteID = existing.RemoteID
	f.orders[o.OrderID] = mirror
	return nil
}

func (f *Fake) OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls++
	if !f.online {
		return nil, ErrUnavailable
	}
	want := make(map[model.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := []model.Order{}
	for _, id := range f.orderSeq {
		if o, ok := f.orders[id]; ok && want[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

// Order returns the mirrored copy of an order, for test assertions.
func (f *Fake) Order(orderID string) (model.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	return o, ok
}

// Item returns the mirrored copy of an item, for test assertions.
func (f *Fake) Item(id string) (model.CatalogItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	return it, ok
}

// Cup returns the mirrored copy of a cup record, for test assertions.
func (f *Fake) Cup(id string) (model.CupType, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cups[id]
	return c, ok
}

// OrderCount reports how many distinct orders the backend holds.
func (f *Fake) OrderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

var _ Gateway = (*Fake)(nil)
