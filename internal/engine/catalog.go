package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"kapesync/internal/model"
)

// Catalog writes follow the dual-write state machine: validate, save
// to the local cache, then mirror or queue. Deletes of records that
// were never mirrored still enqueue the delete; the gateway treats a
// delete of an unknown document as an error and the mutation retries,
// which is harmless because the create it chases is ahead of it in
// the same queue.

// CreateItem adds a catalog item locally and mirrors it.
func (c *Coordinator) CreateItem(ctx context.Context, it model.CatalogItem) (model.CatalogItem, WriteResult, error) {
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Origin = model.OriginLocal
	if err := model.Check(&it); err != nil {
		return model.CatalogItem{}, WriteResult{}, NewValidationError(it.ID, err.Error())
	}

	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return model.CatalogItem{}, WriteResult{}, NewLocalStorageError("read items", err)
	}
	for _, existing := range items {
		if existing.ID == it.ID {
			return model.CatalogItem{}, WriteResult{}, NewValidationError(it.ID, "item id already exists")
		}
	}
	items = append(items, it)
	if err := c.store.SaveCachedItems(ctx, items); err != nil {
		return model.CatalogItem{}, WriteResult{}, NewLocalStorageError("save items", err)
	}

	m, err := model.NewMutation(model.MutationCreateItem, it)
	if err != nil {
		return model.CatalogItem{}, WriteResult{}, NewValidationError(it.ID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return c.gw.CreateItem(ctx, it)
	})
	if err != nil {
		return model.CatalogItem{}, res, err
	}
	if res.RemoteID != "" {
		// Mirrored: the record now lives on the backend, so its cached
		// copy flips to remote origin and stops counting as local-only.
		it.RemoteID = res.RemoteID
		it.Origin = model.OriginRemote
		if err := c.updateCachedItem(ctx, it); err != nil {
			return it, res, err
		}
	}
	return it, res, nil
}

// UpdateItem replaces a catalog item locally and mirrors the update.
func (c *Coordinator) UpdateItem(ctx context.Context, it model.CatalogItem) (WriteResult, error) {
	if err := model.Check(&it); err != nil {
		return WriteResult{}, NewValidationError(it.ID, err.Error())
	}
	if err := c.updateCachedItem(ctx, it); err != nil {
		return WriteResult{}, err
	}
	m, err := model.NewMutation(model.MutationUpdateItem, it)
	if err != nil {
		return WriteResult{}, NewValidationError(it.ID, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateItem(ctx, it)
	})
}

// DeleteItem removes a catalog item locally and mirrors the delete.
func (c *Coordinator) DeleteItem(ctx context.Context, id string) (WriteResult, error) {
	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return WriteResult{}, NewLocalStorageError("read items", err)
	}
	var target model.CatalogItem
	found := false
	kept := items[:0:0]
	for _, it := range items {
		if it.ID == id {
			target = it
			found = true
			continue
		}
		kept = append(kept, it)
	}
	if !found {
		return WriteResult{}, NewValidationError(id, "unknown item")
	}
	if err := c.store.SaveCachedItems(ctx, kept); err != nil {
		return WriteResult{}, NewLocalStorageError("save items", err)
	}
	m, err := model.NewMutation(model.MutationDeleteItem, target)
	if err != nil {
		return WriteResult{}, NewValidationError(id, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.DeleteItem(ctx, id)
	})
}

func (c *Coordinator) updateCachedItem(ctx context.Context, it model.CatalogItem) error {
	items, err := c.store.CachedItems(ctx)
	if err != nil {
		return NewLocalStorageError("read items", err)
	}
	found := false
	for i := range items {
		if items[i].ID == it.ID {
			items[i] = it
			found = true
			break
		}
	}
	if !found {
		return NewValidationError(it.ID, "unknown item")
	}
	if err := c.store.SaveCachedItems(ctx, items); err != nil {
		return NewLocalStorageError("save items", err)
	}
	return nil
}

// CreateCategory adds a category locally and mirrors it.
func (c *Coordinator) CreateCategory(ctx context.Context, cat model.Category) (model.Category, WriteResult, error) {
	if cat.ID == "" {
		cat.ID = uuid.NewString()
	}
	cat.Origin = model.OriginLocal
	if cat.Name == model.AllCategoryName {
		return model.Category{}, WriteResult{}, NewValidationError(cat.ID, fmt.Sprintf("%q is reserved", model.AllCategoryName))
	}
	if err := model.Check(&cat); err != nil {
		return model.Category{}, WriteResult{}, NewValidationError(cat.ID, err.Error())
	}

	cats, err := c.store.CachedCategories(ctx)
	if err != nil {
		return model.Category{}, WriteResult{}, NewLocalStorageError("read categories", err)
	}
	cats = append(cats, cat)
	if err := c.store.SaveCachedCategories(ctx, cats); err != nil {
		return model.Category{}, WriteResult{}, NewLocalStorageError("save categories", err)
	}

	m, err := model.NewMutation(model.MutationCreateCategory, cat)
	if err != nil {
		return model.Category{}, WriteResult{}, NewValidationError(cat.ID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return c.gw.CreateCategory(ctx, cat)
	})
	if err != nil {
		return model.Category{}, res, err
	}
	if res.RemoteID != "" {
		cat.RemoteID = res.RemoteID
		cat.Origin = model.OriginRemote
		if err := c.updateCachedCategory(ctx, cat); err != nil {
			return cat, res, err
		}
	}
	return cat, res, nil
}

// UpdateCategory replaces a category locally and mirrors the update.
func (c *Coordinator) UpdateCategory(ctx context.Context, cat model.Category) (WriteResult, error) {
	if err := model.Check(&cat); err != nil {
		return WriteResult{}, NewValidationError(cat.ID, err.Error())
	}
	if err := c.updateCachedCategory(ctx, cat); err != nil {
		return WriteResult{}, err
	}
	m, err := model.NewMutation(model.MutationUpdateCategory, cat)
	if err != nil {
		return WriteResult{}, NewValidationError(cat.ID, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateCategory(ctx, cat)
	})
}

func (c *Coordinator) updateCachedCategory(ctx context.Context, cat model.Category) error {
	cats, err := c.store.CachedCategories(ctx)
	if err != nil {
		return NewLocalStorageError("read categories", err)
	}
	found := false
	for i := range cats {
		if cats[i].ID == cat.ID {
			cats[i] = cat
			found = true
			break
		}
	}
	if !found {
		return NewValidationError(cat.ID, "unknown category")
	}
	if err := c.store.SaveCachedCategories(ctx, cats); err != nil {
		return NewLocalStorageError("save categories", err)
	}
	return nil
}

// DeleteCategory removes a category locally and mirrors the delete.
func (c *Coordinator) DeleteCategory(ctx context.Context, id string) (WriteResult, error) {
	cats, err := c.store.CachedCategories(ctx)
	if err != nil {
		return WriteResult{}, NewLocalStorageError("read categories", err)
	}
	var target model.Category
	found := false
	kept := cats[:0:0]
	for _, cat := range cats {
		if cat.ID == id {
			target = cat
			found = true
			continue
		}
		kept = append(kept, cat)
	}
	if !found {
		return WriteResult{}, NewValidationError(id, "unknown category")
	}
	if err := c.store.SaveCachedCategories(ctx, kept); err != nil {
		return WriteResult{}, NewLocalStorageError("save categories", err)
	}
	m, err := model.NewMutation(model.MutationDeleteCategory, target)
	if err != nil {
		return WriteResult{}, NewValidationError(id, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.DeleteCategory(ctx, id)
	})
}

// CreateCup adds a cup record locally and mirrors it.
func (c *Coordinator) CreateCup(ctx context.Context, cup model.CupType) (model.CupType, WriteResult, error) {
	if cup.ID == "" {
		cup.ID = uuid.NewString()
	}
	cup.Origin = model.OriginLocal
	if err := model.Check(&cup); err != nil {
		return model.CupType{}, WriteResult{}, NewValidationError(cup.ID, err.Error())
	}
	cups, err := c.store.CachedCups(ctx)
	if err != nil {
		return model.CupType{}, WriteResult{}, NewLocalStorageError("read cups", err)
	}
	cups = append(cups, cup)
	if err := c.store.SaveCachedCups(ctx, cups); err != nil {
		return model.CupType{}, WriteResult{}, NewLocalStorageError("save cups", err)
	}
	m, err := model.NewMutation(model.MutationCreateCup, cup)
	if err != nil {
		return model.CupType{}, WriteResult{}, NewValidationError(cup.ID, err.Error())
	}
	res, err := c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return c.gw.CreateCup(ctx, cup)
	})
	if err != nil {
		return model.CupType{}, res, err
	}
	if res.RemoteID != "" {
		cup.RemoteID = res.RemoteID
		cup.Origin = model.OriginRemote
		if err := c.updateCachedCup(ctx, cup); err != nil {
			return cup, res, err
		}
	}
	return cup, res, nil
}

// UpdateCup replaces a cup record locally and mirrors the update.
func (c *Coordinator) UpdateCup(ctx context.Context, cup model.CupType) (WriteResult, error) {
	if err := model.Check(&cup); err != nil {
		return WriteResult{}, NewValidationError(cup.ID, err.Error())
	}
	if err := c.updateCachedCup(ctx, cup); err != nil {
		return WriteResult{}, err
	}
	m, err := model.NewMutation(model.MutationUpdateCup, cup)
	if err != nil {
		return WriteResult{}, NewValidationError(cup.ID, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.UpdateCup(ctx, cup)
	})
}

// DeleteCup removes a cup record locally and mirrors the delete.
func (c *Coordinator) DeleteCup(ctx context.Context, id string) (WriteResult, error) {
	cups, err := c.store.CachedCups(ctx)
	if err != nil {
		return WriteResult{}, NewLocalStorageError("read cups", err)
	}
	var target model.CupType
	found := false
	kept := cups[:0:0]
	for _, cup := range cups {
		if cup.ID == id {
			target = cup
			found = true
			continue
		}
		kept = append(kept, cup)
	}
	if !found {
		return WriteResult{}, NewValidationError(id, "unknown cup")
	}
	if err := c.store.SaveCachedCups(ctx, kept); err != nil {
		return WriteResult{}, NewLocalStorageError("save cups", err)
	}
	m, err := model.NewMutation(model.MutationDeleteCup, target)
	if err != nil {
		return WriteResult{}, NewValidationError(id, err.Error())
	}
	return c.mirrorOrQueue(ctx, m, func(ctx context.Context) (string, error) {
		return "", c.gw.DeleteCup(ctx, id)
	})
}

func (c *Coordinator) updateCachedCup(ctx context.Context, cup model.CupType) error {
	cups, err := c.store.CachedCups(ctx)
	if err != nil {
		return NewLocalStorageError("read cups", err)
	}
	found := false
	for i := range cups {
		if cups[i].ID == cup.ID {
			cups[i] = cup
			found = true
			break
		}
	}
	if !found {
		return NewValidationError(cup.ID, "unknown cup")
	}
	if err := c.store.SaveCachedCups(ctx, cups); err != nil {
		return NewLocalStorageError("save cups", err)
	}
	return nil
}

// Items returns the merged catalog: online, the remote active items
// unioned with local-only records; offline or demo, the cache. A
// successful remote read refreshes the cache as a side effect.
func (c *Coordinator) Items(ctx context.Context) ([]model.CatalogItem, error) {
	mode := c.probe.Mode(ctx)
	if mode == model.ModeOnline {
		remoteItems, err := c.gw.ActiveItems(ctx)
		if err == nil {
			for i := range remoteItems {
				remoteItems[i].Origin = model.OriginRemote
			}
			local, lerr := c.localOnlyItems(ctx)
			if lerr != nil {
				return nil, NewLocalStorageError("read items", lerr)
			}
			merged := mergeItems(remoteItems, local)
			if err := c.store.SaveCachedItems(ctx, append(remoteItems, local...)); err != nil {
				c.log.Warn("item cache refresh failed", "error", err)
			}
			return merged, nil
		}
		c.log.Warn("remote item read failed, serving cache", "error", err)
		c.probe.Invalidate()
	}

	cached, err := c.store.CachedItems(ctx)
	if err != nil {
		return nil, NewLocalStorageError("read items", err)
	}
	return mergeItems(splitItems(cached)), nil
}

// Categories returns the merged category list with the synthetic
// "All" entry prepended.
func (c *Coordinator) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	mode := c.probe.Mode(ctx)
	if mode == model.ModeOnline {
		remoteCats, err := c.gw.Categories(ctx)
		if err == nil {
			for i := range remoteCats {
				remoteCats[i].Origin = model.OriginRemote
			}
			local, lerr := c.localOnlyCategories(ctx)
			if lerr != nil {
				return nil, NewLocalStorageError("read categories", lerr)
			}
			cats = mergeCategories(remoteCats, local)
			if err := c.store.SaveCachedCategories(ctx, append(remoteCats, local...)); err != nil {
				c.log.Warn("category cache refresh failed", "error", err)
			}
		} else {
			c.log.Warn("remote category read failed, serving cache", "error", err)
			c.probe.Invalidate()
		}
	}
	if cats == nil {
		cached, err := c.store.CachedCategories(ctx)
		if err != nil {
			return nil, NewLocalStorageError("read categories", err)
		}
		cats = mergeCategories(splitCategories(cached))
	}

	all := model.Category{
		ID:     "all",
		Name:   model.AllCategoryName,
		Origin: model.OriginLocal,
	}
	for _, cat := range cats {
		all.ItemsCount += cat.ItemsCount
	}
	return append([]model.Category{all}, cats...), nil
}

// Cups returns the merged cup list.
func (c *Coordinator) Cups(ctx context.Context) ([]model.CupType, error) {
	mode := c.probe.Mode(ctx)
	if mode == model.ModeOnline {
		remoteCups, err := c.gw.Cups(ctx)
		if err == nil {
			for i := range remoteCups {
				remoteCups[i].Origin = model.OriginRemote
			}
			local, lerr := c.localOnlyCups(ctx)
			if lerr != nil {
				return nil, NewLocalStorageError("read cups", lerr)
			}
			merged := mergeCups(remoteCups, local)
			if err := c.store.SaveCachedCups(ctx, append(remoteCups, local...)); err != nil {
				c.log.Warn("cup cache refresh failed", "error", err)
			}
			return merged, nil
		}
		c.log.Warn("remote cup read failed, serving cache", "error", err)
		c.probe.Invalidate()
	}

	cached, err := c.store.CachedCups(ctx)
	if err != nil {
		return nil, NewLocalStorageError("read cups", err)
	}
	return mergeCups(splitCups(cached)), nil
}

// Merge rules: one entry per exact case-sensitive name, remote-origin
// record wins. The losing local record stays in storage untouched;
// only the displayed set collapses.

func mergeItems(remoteItems, localItems []model.CatalogItem) []model.CatalogItem {
	out := make([]model.CatalogItem, 0, len(remoteItems)+len(localItems))
	seen := make(map[string]bool, len(remoteItems))
	for _, it := range remoteItems {
		out = append(out, it)
		seen[it.Name] = true
	}
	for _, it := range localItems {
		if seen[it.Name] {
			continue
		}
		seen[it.Name] = true
		out = append(out, it)
	}
	return out
}

func mergeCategories(remoteCats, localCats []model.Category) []model.Category {
	out := make([]model.Category, 0, len(remoteCats)+len(localCats))
	seen := make(map[string]bool, len(remoteCats))
	for _, cat := range remoteCats {
		out = append(out, cat)
		seen[cat.Name] = true
	}
	for _, cat := range localCats {
		if seen[cat.Name] {
			continue
		}
		seen[cat.Name] = true
		out = append(out, cat)
	}
	return out
}

func mergeCups(remoteCups, localCups []model.CupType) []model.CupType {
	out := make([]model.CupType, 0, len(remoteCups)+len(localCups))
	seen := make(map[string]bool, len(remoteCups))
	for _, cup := range remoteCups {
		out = append(out, cup)
		seen[cup.Name] = true
	}
	for _, cup := range localCups {
		if seen[cup.Name] {
			continue
		}
		seen[cup.Name] = true
		out = append(out, cup)
	}
	return out
}

func splitItems(all []model.CatalogItem) (remoteItems, localItems []model.CatalogItem) {
	for _, it := range all {
		if it.Origin == model.OriginRemote {
			remoteItems = append(remoteItems, it)
		} else {
			localItems = append(localItems, it)
		}
	}
	return remoteItems, localItems
}

func splitCategories(all []model.Category) (remoteCats, localCats []model.Category) {
	for _, cat := range all {
		if cat.Origin == model.OriginRemote {
			remoteCats = append(remoteCats, cat)
		} else {
			localCats = append(localCats, cat)
		}
	}
	return remoteCats, localCats
}

func splitCups(all []model.CupType) (remoteCups, localCups []model.CupType) {
	for _, cup := range all {
		if cup.Origin == model.OriginRemote {
			remoteCups = append(remoteCups, cup)
		} else {
			localCups = append(localCups, cup)
		}
	}
	return remoteCups, localCups
}
