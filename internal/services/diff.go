package services

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mannyc2/watchify-app-sub000/internal/clients/shopfeed"
	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
)

// presenceAction is the transition a product takes based on where it exists
// (active rows, soft-deleted rows) and whether the current feed contains it.
type presenceAction int

const (
	actionIgnore presenceAction = iota
	actionCreate
	actionUpdate
	actionResurrect
	actionRemove
)

// presenceTransition is the explicit lookup over the product lifecycle
// tri-state. An id that is somehow both active and removed is treated as
// active; the removed row is stale.
func presenceTransition(existsActive, existsRemoved, appearsInFeed bool) presenceAction {
	switch {
	case appearsInFeed && existsActive:
		return actionUpdate
	case appearsInFeed && existsRemoved:
		return actionResurrect
	case appearsInFeed:
		return actionCreate
	case existsActive:
		return actionRemove
	default:
		// Absent and either already removed or never seen: nothing to do.
		return actionIgnore
	}
}

// diffResult is everything one reconcile pass decided: rows to insert, rows
// to rewrite, rows to drop, history to record, and the events describing it.
type diffResult struct {
	newProducts     []*catalog.Product // variants attached, inserted together
	updatedProducts []*catalog.Product // field mutations already applied
	newVariants     []*catalog.Variant // added to already-stored products
	updatedVariants []*catalog.Variant
	removedVariants []uuid.UUID
	snapshots       []*catalog.VariantSnapshot
	events          []*catalog.ChangeEvent
	active          []*catalog.Product // all active products, feed order
}

// reconcile diffs a source's stored state against a fresh fetch. Events come
// out in feed iteration order with removals appended last. It mutates the
// passed-in product/variant rows in place; persistence happens elsewhere.
func reconcile(existing []*catalog.Product, resurrectable map[string]*catalog.Product, fetched []shopfeed.Product, now time.Time) *diffResult {
	res := &diffResult{}

	activeByExt := make(map[string]*catalog.Product, len(existing))
	for _, p := range existing {
		activeByExt[p.ExternalID] = p
	}

	seen := make(map[string]bool, len(fetched))
	for i := range fetched {
		f := &fetched[i]
		seen[f.ExternalID] = true

		active, existsActive := activeByExt[f.ExternalID]
		removed, existsRemoved := resurrectable[f.ExternalID]

		switch presenceTransition(existsActive, existsRemoved, true) {
		case actionCreate:
			p := newProductFromFetch(f, now)
			res.newProducts = append(res.newProducts, p)
			res.active = append(res.active, p)
			res.events = append(res.events, &catalog.ChangeEvent{
				ID:           uuid.New(),
				OccurredAt:   now,
				ChangeType:   catalog.ChangeTypeNewProduct,
				ProductTitle: f.Title,
			})

		case actionResurrect:
			// Reappearance is ordinary sync activity, not a new-product event.
			removed.IsRemoved = false
			res.updateProduct(removed, f, now)
			res.active = append(res.active, removed)

		case actionUpdate:
			res.updateProduct(active, f, now)
			res.active = append(res.active, active)
		}
	}

	// Removals after the feed pass, in stored order.
	for _, p := range existing {
		if seen[p.ExternalID] {
			continue
		}
		if presenceTransition(true, false, false) != actionRemove {
			continue
		}
		res.events = append(res.events, &catalog.ChangeEvent{
			ID:           uuid.New(),
			OccurredAt:   now,
			ChangeType:   catalog.ChangeTypeProductRemoved,
			ProductTitle: p.Title,
		})
		p.IsRemoved = true
		res.updatedProducts = append(res.updatedProducts, p)
	}

	return res
}

// updateProduct applies field and variant diffs for a product present both
// in storage and in the feed.
func (res *diffResult) updateProduct(p *catalog.Product, f *shopfeed.Product, now time.Time) {
	oldImages := catalog.DecodeImageURLs(p.ImageURLs)
	if imageListChanged(oldImages, f.ImageURLs) && len(oldImages) != len(f.ImageURLs) {
		res.events = append(res.events, &catalog.ChangeEvent{
			ID:           uuid.New(),
			OccurredAt:   now,
			ChangeType:   catalog.ChangeTypeImagesChanged,
			ProductTitle: f.Title,
			OldValue:     strconv.Itoa(len(oldImages)),
			NewValue:     strconv.Itoa(len(f.ImageURLs)),
		})
	}

	p.Title = f.Title
	p.Vendor = f.Vendor
	p.ProductType = f.ProductType
	p.ImageURLs = catalog.EncodeImageURLs(f.ImageURLs)
	p.LastSeenAt = now
	res.updatedProducts = append(res.updatedProducts, p)

	res.updateVariants(p, f, now)
}

func (res *diffResult) updateVariants(p *catalog.Product, f *shopfeed.Product, now time.Time) {
	storedByExt := make(map[string]*catalog.Variant, len(p.Variants))
	for i := range p.Variants {
		storedByExt[p.Variants[i].ExternalID] = &p.Variants[i]
	}

	fetchedSeen := make(map[string]bool, len(f.Variants))
	for _, fv := range f.Variants {
		fetchedSeen[fv.ExternalID] = true
		stored, ok := storedByExt[fv.ExternalID]
		if !ok {
			// New variant: created silently, there is no event type for it.
			res.newVariants = append(res.newVariants, newVariantFromFetch(p.ID, fv))
			continue
		}

		res.emitVariantEvents(f.Title, stored, fv, now)

		changed, snap := applyVariantUpdate(stored, fv, now)
		if snap != nil {
			res.snapshots = append(res.snapshots, snap)
		}
		if changed {
			res.updatedVariants = append(res.updatedVariants, stored)
		}
	}

	// Variant gone from the feed while the product survives: silent delete.
	for i := range p.Variants {
		if !fetchedSeen[p.Variants[i].ExternalID] {
			res.removedVariants = append(res.removedVariants, p.Variants[i].ID)
		}
	}
}

func (res *diffResult) emitVariantEvents(productTitle string, stored *catalog.Variant, fv shopfeed.Variant, now time.Time) {
	if !stored.Price.Equal(fv.Price) {
		delta := fv.Price.Sub(stored.Price)
		changeType := catalog.ChangeTypePriceIncreased
		if delta.IsNegative() {
			changeType = catalog.ChangeTypePriceDropped
		}
		res.events = append(res.events, &catalog.ChangeEvent{
			ID:           uuid.New(),
			OccurredAt:   now,
			ChangeType:   changeType,
			ProductTitle: productTitle,
			VariantTitle: stored.Title,
			OldValue:     formatMoney(stored.Price),
			NewValue:     formatMoney(fv.Price),
			PriceChange:  decimal.NullDecimal{Decimal: delta, Valid: true},
			Magnitude:    catalog.MagnitudeFor(stored.Price, fv.Price),
		})
	}

	if stored.Available != fv.Available {
		changeType := catalog.ChangeTypeOutOfStock
		if fv.Available {
			changeType = catalog.ChangeTypeBackInStock
		}
		res.events = append(res.events, &catalog.ChangeEvent{
			ID:           uuid.New(),
			OccurredAt:   now,
			ChangeType:   changeType,
			ProductTitle: productTitle,
			VariantTitle: stored.Title,
		})
	}
}

// applyVariantUpdate is the single mutation point for a stored variant. When
// price, compare-at price or availability moved, it builds a snapshot of the
// pre-mutation values and then overwrites the row; the two cannot be
// separated, which is what keeps history from being lost to a reordering.
// The bool reports whether the row changed at all and needs persisting.
func applyVariantUpdate(stored *catalog.Variant, fv shopfeed.Variant, now time.Time) (bool, *catalog.VariantSnapshot) {
	var snap *catalog.VariantSnapshot
	changed := false

	if !stored.Price.Equal(fv.Price) ||
		!nullDecimalEqual(stored.CompareAtPrice, fv.CompareAtPrice) ||
		stored.Available != fv.Available {
		snap = &catalog.VariantSnapshot{
			ID:             uuid.New(),
			VariantID:      stored.ID,
			CapturedAt:     now,
			Price:          stored.Price,
			CompareAtPrice: stored.CompareAtPrice,
			Available:      stored.Available,
		}
		stored.Price = fv.Price
		stored.CompareAtPrice = fv.CompareAtPrice
		stored.Available = fv.Available
		changed = true
	}

	if stored.Title != fv.Title || stored.SKU != fv.SKU || stored.Position != fv.Position {
		stored.Title = fv.Title
		stored.SKU = fv.SKU
		stored.Position = fv.Position
		changed = true
	}
	return changed, snap
}

func newProductFromFetch(f *shopfeed.Product, now time.Time) *catalog.Product {
	p := &catalog.Product{
		ID:          uuid.New(),
		ExternalID:  f.ExternalID,
		Title:       f.Title,
		Vendor:      f.Vendor,
		ProductType: f.ProductType,
		ImageURLs:   catalog.EncodeImageURLs(f.ImageURLs),
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	for _, fv := range f.Variants {
		p.Variants = append(p.Variants, *newVariantFromFetch(p.ID, fv))
	}
	return p
}

func newVariantFromFetch(productID uuid.UUID, fv shopfeed.Variant) *catalog.Variant {
	return &catalog.Variant{
		ID:             uuid.New(),
		ProductID:      productID,
		ExternalID:     fv.ExternalID,
		Title:          fv.Title,
		SKU:            fv.SKU,
		Price:          fv.Price,
		CompareAtPrice: fv.CompareAtPrice,
		Available:      fv.Available,
		Position:       fv.Position,
	}
}

func imageListChanged(old, fetched []string) bool {
	if len(old) != len(fetched) {
		return true
	}
	for i := range old {
		if old[i] != fetched[i] {
			return true
		}
	}
	return false
}

func nullDecimalEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	return a.Decimal.Equal(b.Decimal)
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
