package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View types are plain immutable values handed across the service boundary.
// Live gorm rows never leave the sync writer.

type SourceView struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Domain        string     `json:"domain"`
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`
	IsSyncing     bool       `json:"is_syncing"`
}

func NewSourceView(s *Source) SourceView {
	v := SourceView{
		ID:        s.ID,
		Name:      s.Name,
		Domain:    s.Domain,
		IsSyncing: s.IsSyncing,
	}
	if s.LastFetchedAt != nil {
		t := *s.LastFetchedAt
		v.LastFetchedAt = &t
	}
	return v
}

type ChangeEventView struct {
	ID           uuid.UUID        `json:"id"`
	SourceID     uuid.UUID        `json:"source_id"`
	OccurredAt   time.Time        `json:"occurred_at"`
	ChangeType   ChangeType       `json:"change_type"`
	ProductTitle string           `json:"product_title"`
	VariantTitle string           `json:"variant_title,omitempty"`
	OldValue     string           `json:"old_value,omitempty"`
	NewValue     string           `json:"new_value,omitempty"`
	PriceChange  *decimal.Decimal `json:"price_change,omitempty"`
	Magnitude    Magnitude        `json:"magnitude,omitempty"`
	IsRead       bool             `json:"is_read"`
}

func NewChangeEventView(e *ChangeEvent) ChangeEventView {
	v := ChangeEventView{
		ID:           e.ID,
		SourceID:     e.SourceID,
		OccurredAt:   e.OccurredAt,
		ChangeType:   e.ChangeType,
		ProductTitle: e.ProductTitle,
		VariantTitle: e.VariantTitle,
		OldValue:     e.OldValue,
		NewValue:     e.NewValue,
		Magnitude:    e.Magnitude,
		IsRead:       e.IsRead,
	}
	if e.PriceChange.Valid {
		d := e.PriceChange.Decimal
		v.PriceChange = &d
	}
	return v
}

func NewChangeEventViews(events []*ChangeEvent) []ChangeEventView {
	out := make([]ChangeEventView, 0, len(events))
	for _, e := range events {
		out = append(out, NewChangeEventView(e))
	}
	return out
}

type SnapshotView struct {
	CapturedAt     time.Time        `json:"captured_at"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty"`
	Available      bool             `json:"available"`
}

func NewSnapshotView(s *VariantSnapshot) SnapshotView {
	v := SnapshotView{
		CapturedAt: s.CapturedAt,
		Price:      s.Price,
		Available:  s.Available,
	}
	if s.CompareAtPrice.Valid {
		d := s.CompareAtPrice.Decimal
		v.CompareAtPrice = &d
	}
	return v
}
