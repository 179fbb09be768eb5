package engine

import (
	"context"
	"time"

	"kapesync/internal/model"
)

// PlaceOrder turns the cart into a receipt: LOCAL_SAVED into the
// pending receipts list first, then mirrored or queued. The cart is
// cleared on success. The order always places; the queued path only
// adds the notice text.
func (c *Coordinator) PlaceOrder(ctx context.Context, cart *Cart) (model.Order, WriteResult, error) {
	lines := cart.Lines()
	if len(lines) == 0 {
		return model.Order{}, WriteResult{}, NewValidationError("", "cart is empty")
	}

	o := model.Order{
		OrderID:      c.ids.NextOrderID(),
		CustomerName: cart.customer,
		Timestamp:    time.Now().UTC(),
		Status:       model.OrderUnpaid,
		OrderType:    cart.orderType,
		CupsUsed:     cart.CupsUsed(),
	}
	for _, l := range lines {
		o.Items = append(o.Items, model.OrderLine{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
	}
	model.ComputeTotals(&o)
	if err := model.Check(&o); err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(o.OrderID, err.Error())
	}

	receipts, err := c.store.PendingReceipts(ctx)
	if err != nil {
		return model.Order{}, WriteResult{}, NewLocalStorageError("read receipts", err)
	}
	receipts = append(receipts, o)
	if err := c.store.SavePendingReceipts(ctx, receipts); err != nil {
		return model.Order{}, WriteResult{}, NewLocalStorageError("save receipts", err)
	}
	c.log.Info("order saved locally",
		"order_id", o.OrderID,
		"customer", o.CustomerName,
		"total", o.Total,
		"cups", o.CupsUsed,
	)

	m, err := model.NewMutation(model.MutationCreateOrder, o.MirrorCopy())
	if err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(o.OrderID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return c.gw.CreateOrder(ctx, o.MirrorCopy())
	})
	if err != nil {
		return model.Order{}, res, err
	}
	if res.RemoteID != "" {
		o.RemoteID = res.RemoteID
		if err := c.updateReceipt(ctx, o); err != nil {
			return o, res, err
		}
	}

	cart.Clear()
	return o, res, nil
}

// Receipt returns a stored receipt by order id.
func (c *Coordinator) Receipt(ctx context.Context, orderID string) (model.Order, error) {
	receipts, err := c.store.PendingReceipts(ctx)
	if err != nil {
		return model.Order{}, NewLocalStorageError("read receipts", err)
	}
	for _, o := range receipts {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return model.Order{}, NewValidationError(orderID, "unknown order")
}

// Receipts returns stored receipts, optionally filtered by status,
// oldest first.
func (c *Coordinator) Receipts(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	receipts, err := c.store.PendingReceipts(ctx)
	if err != nil {
		return nil, NewLocalStorageError("read receipts", err)
	}
	if len(statuses) == 0 {
		return receipts, nil
	}
	want := make(map[model.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := receipts[:0:0]
	for _, o := range receipts {
		if want[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c *Coordinator) updateReceipt(ctx context.Context, o model.Order) error {
	receipts, err := c.store.PendingReceipts(ctx)
	if err != nil {
		return NewLocalStorageError("read receipts", err)
	}
	for i := range receipts {
		if receipts[i].OrderID == o.OrderID {
			receipts[i] = o
			if err := c.store.SavePendingReceipts(ctx, receipts); err != nil {
				return NewLocalStorageError("save receipts", err)
			}
			return nil
		}
	}
	return NewValidationError(o.OrderID, "unknown order")
}

// FinalizeOrder marks an unpaid receipt paid and commits its side
// effects exactly once: item stock decremented and lifetime sales
// incremented per quantity sold, cup stock decremented by the order's
// counter. Local state commits first; remote failures queue and never
// roll anything back.
func (c *Coordinator) FinalizeOrder(ctx context.Context, orderID string) (model.Order, WriteResult, error) {
	o, err := c.Receipt(ctx, orderID)
	if err != nil {
		return model.Order{}, WriteResult{}, err
	}
	if o.Status != model.OrderUnpaid {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, "order is not unpaid")
	}

	if err := c.commitItemEffects(ctx, &o); err != nil {
		return model.Order{}, WriteResult{}, err
	}
	if o.CupsUsed > 0 {
		if err := c.commitCupConsumption(ctx, &o); err != nil {
			return model.Order{}, WriteResult{}, err
		}
	}

	o.Status = model.OrderPaid
	if err := c.updateReceipt(ctx, o); err != nil {
		return model.Order{}, WriteResult{}, err
	}
	c.log.Info("order paid",
		"order_id", o.OrderID,
		"total", o.Total,
		"cups_consumed", o.CupsUsed,
	)

	m, err := model.NewMutation(model.MutationUpdateOrder, o.MirrorCopy())
	if err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateOrder(ctx, o.MirrorCopy())
	})
	return o, res, err
}

// commitItemEffects applies the cart-time stock decrement and the
// sales increment to the stored catalog, then mirrors each touched
// item. Lines are matched to items by name; a line whose item has left
// the catalog logs and commits nothing for that line.
func (c *Coordinator) commitItemEffects(ctx context.Context, o *model.Order) error {
	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return NewLocalStorageError("read items", err)
	}
	byName := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := byName[it.Name]; !dup {
			byName[it.Name] = i
		}
	}

	var touched []model.CatalogItem
	for _, l := range o.ActiveLines() {
		i, ok := byName[l.Name]
		if !ok {
			c.log.Warn("order line has no catalog item, skipping stock commit",
				"order_id", o.OrderID,
				"line", l.Name,
			)
			continue
		}
		if items[i].Stocks < l.Quantity {
			// Stock drifted below the cart-time reservation, for
			// example via a concurrent catalog edit. Floor at zero
			// rather than failing a sale that already happened.
			c.log.Warn("stock underrun at finalize",
				"order_id", o.OrderID,
				"item", l.Name,
				"stocks", items[i].Stocks,
				"sold", l.Quantity,
			)
			items[i].Stocks = 0
		} else {
			items[i].Stocks -= l.Quantity
		}
		items[i].Sales += l.Quantity
		touched = append(touched, items[i])
	}

	if len(touched) == 0 {
		return nil
	}
	if err := c.store.SaveCachedItems(ctx, items); err != nil {
		return NewLocalStorageError("save items", err)
	}
	for _, it := range touched {
		m, err := model.NewMutation(model.MutationUpdateItem, it)
		if err != nil {
			return NewValidationError(it.ID, err.Error())
		}
		it := it
		if _, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
			return "", c.gw.UpdateItem(ctx, it)
		}); err != nil {
			return err
		}
	}
	return nil
}

// commitCupConsumption decrements cup stock by the order's counter.
// Each consuming line targets the cup its item names; a missing name
// falls back to the first cup with stock, and the fallback is logged.
func (c *Coordinator) commitCupConsumption(ctx context.Context, o *model.Order) error {
	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return NewLocalStorageError("read items", err)
	}
	cupNameByItem := make(map[string]string, len(items))
	for _, it := range items {
		cupNameByItem[it.Name] = it.CupName
	}

	cups, err := c.store.CachedCups(ctx)
	if err != nil {
		return NewLocalStorageError("read cups", err)
	}
	cupIdx := make(map[string]int, len(cups))
	for i, cup := range cups {
		if _, dup := cupIdx[cup.Name]; !dup {
			cupIdx[cup.Name] = i
		}
	}

	take := func(i int, n int) int {
		if cups[i].Stocks >= n {
			cups[i].Stocks -= n
			return n
		}
		got := cups[i].Stocks
		cups[i].Stocks = 0
		return got
	}

	touched := make(map[int]bool)
	for _, l := range o.ActiveLines() {
		cupName := cupNameByItem[l.Name]
		if cupName == "" {
			continue
		}
		need := l.Quantity
		if i, ok := cupIdx[cupName]; ok {
			got := take(i, need)
			touched[i] = true
			need -= got
		} else {
			c.log.Warn("cup record missing, using first available",
				"order_id", o.OrderID,
				"item", l.Name,
				"cup", cupName,
			)
		}
		for i := range cups {
			if need == 0 {
				break
			}
			if cups[i].Stocks == 0 {
				continue
			}
			got := take(i, need)
			touched[i] = true
			need -= got
		}
		if need > 0 {
			c.log.Warn("cup stock exhausted at finalize",
				"order_id", o.OrderID,
				"item", l.Name,
				"short", need,
			)
		}
	}

	if len(touched) == 0 {
		return nil
	}
	if err := c.store.SaveCachedCups(ctx, cups); err != nil {
		return NewLocalStorageError("save cups", err)
	}
	for i := range touched {
		cup := cups[i]
		m, err := model.NewMutation(model.MutationUpdateCup, cup)
		if err != nil {
			return NewValidationError(cup.ID, err.Error())
		}
		if _, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
			return "", c.gw.UpdateCup(ctx, cup)
		}); err != nil {
			return err
		}
	}
	return nil
}

// CancelOrder marks an unpaid receipt cancelled. No stock was
// committed yet, so there is nothing to restore.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID string) (model.Order, WriteResult, error) {
	o, err := c.Receipt(ctx, orderID)
	if err != nil {
		return model.Order{}, WriteResult{}, err
	}
	if o.Status != model.OrderUnpaid {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, "order is not unpaid")
	}
	o.Status = model.OrderCancelled
	if err := c.updateReceipt(ctx, o); err != nil {
		return model.Order{}, WriteResult{}, err
	}
	c.log.Info("order cancelled", "order_id", o.OrderID)

	m, err := model.NewMutation(model.MutationUpdateOrder, o.MirrorCopy())
	if err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateOrder(ctx, o.MirrorCopy())
	})
	return o, res, err
}

// CancelLine flags a single line cancelled. Totals are recomputed from
// the remaining active lines; the line itself stays on the stored
// receipt.
func (c *Coordinator) CancelLine(ctx context.Context, orderID, lineName string) (model.Order, WriteResult, error) {
	o, err := c.Receipt(ctx, orderID)
	if err != nil {
		return model.Order{}, WriteResult{}, err
	}
	if o.Status != model.OrderUnpaid {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, "order is not unpaid")
	}
	found := false
	cupsFreed := 0
	for i := range o.Items {
		if o.Items[i].Name == lineName && !o.Items[i].Cancelled {
			o.Items[i].Cancelled = true
			found = true
			if o.OrderType == model.OrderTakeOut {
				cupsFreed = o.Items[i].Quantity
			}
			break
		}
	}
	if !found {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, "line not found or already cancelled")
	}
	if cupsFreed > 0 {
		if name, ok := c.lineCupName(ctx, lineName); ok && name != "" {
			o.CupsUsed -= cupsFreed
			if o.CupsUsed < 0 {
				o.CupsUsed = 0
			}
		}
	}
	model.ComputeTotals(&o)
	if err := c.updateReceipt(ctx, o); err != nil {
		return model.Order{}, WriteResult{}, err
	}

	m, err := model.NewMutation(model.MutationUpdateOrder, o.MirrorCopy())
	if err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateOrder(ctx, o.MirrorCopy())
	})
	return o, res, err
}

func (c *Coordinator) lineCupName(ctx context.Context, itemName string) (string, bool) {
	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return "", false
	}
	for _, it := range items {
		if it.Name == itemName {
			return it.CupName, true
		}
	}
	return "", false
}

// MarkLineReady flags a line prepared and recomputes allItemsReady.
func (c *Coordinator) MarkLineReady(ctx context.Context, orderID, lineName string) (model.Order, WriteResult, error) {
	o, err := c.Receipt(ctx, orderID)
	if err != nil {
		return model.Order{}, WriteResult{}, err
	}
	found := false
	for i := range o.Items {
		if o.Items[i].Name == lineName && !o.Items[i].Cancelled {
			o.Items[i].Ready = true
			found = true
			break
		}
	}
	if !found {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, "line not found")
	}
	allReady := true
	for _, l := range o.ActiveLines() {
		if !l.Ready {
			allReady = false
			break
		}
	}
	o.AllItemsReady = allReady
	if err := c.updateReceipt(ctx, o); err != nil {
		return model.Order{}, WriteResult{}, err
	}

	m, err := model.NewMutation(model.MutationUpdateOrder, o.MirrorCopy())
	if err != nil {
		return model.Order{}, WriteResult{}, NewValidationError(orderID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateOrder(ctx, o.MirrorCopy())
	})
	return o, res, err
}
