package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ChangeType string

const (
	ChangeTypePriceDropped   ChangeType = "price_dropped"
	ChangeTypePriceIncreased ChangeType = "price_increased"
	ChangeTypeBackInStock    ChangeType = "back_in_stock"
	ChangeTypeOutOfStock     ChangeType = "out_of_stock"
	ChangeTypeNewProduct     ChangeType = "new_product"
	ChangeTypeProductRemoved ChangeType = "product_removed"
	ChangeTypeImagesChanged  ChangeType = "images_changed"
)

func (t ChangeType) IsPriceChange() bool {
	return t == ChangeTypePriceDropped || t == ChangeTypePriceIncreased
}

// Magnitude is the coarse bucket of a percent price change, used both for
// event severity and as the percentage proxy when thresholding
// notifications.
type Magnitude string

const (
	MagnitudeNone   Magnitude = ""
	MagnitudeSmall  Magnitude = "small"
	MagnitudeMedium Magnitude = "medium"
	MagnitudeLarge  Magnitude = "large"
)

var magnitudeRank = map[Magnitude]int{
	MagnitudeNone:   0,
	MagnitudeSmall:  1,
	MagnitudeMedium: 2,
	MagnitudeLarge:  3,
}

// AtLeast reports whether m meets or exceeds min on the small<medium<large scale.
func (m Magnitude) AtLeast(min Magnitude) bool {
	return magnitudeRank[m] >= magnitudeRank[min]
}

// MagnitudeFor buckets a price move by percent of the old price:
// <=10% small, <=25% medium, otherwise large. An old price of zero is
// defined as a 0% change.
func MagnitudeFor(oldPrice, newPrice decimal.Decimal) Magnitude {
	if oldPrice.IsZero() {
		return MagnitudeSmall
	}
	pct := newPrice.Sub(oldPrice).Abs().
		Div(oldPrice).
		Mul(decimal.NewFromInt(100))
	switch {
	case pct.LessThanOrEqual(decimal.NewFromInt(10)):
		return MagnitudeSmall
	case pct.LessThanOrEqual(decimal.NewFromInt(25)):
		return MagnitudeMedium
	default:
		return MagnitudeLarge
	}
}

// ChangeEvent is one detected difference between two syncs of a source.
// Rows are append-only; only IsRead is ever mutated.
type ChangeEvent struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID uuid.UUID `gorm:"type:uuid;not null;index" json:"source_id"`

	OccurredAt   time.Time           `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	ChangeType   ChangeType          `gorm:"column:change_type;not null" json:"change_type"`
	ProductTitle string              `gorm:"column:product_title;not null" json:"product_title"`
	VariantTitle string              `gorm:"column:variant_title" json:"variant_title,omitempty"`
	OldValue     string              `gorm:"column:old_value" json:"old_value,omitempty"`
	NewValue     string              `gorm:"column:new_value" json:"new_value,omitempty"`
	PriceChange  decimal.NullDecimal `gorm:"column:price_change;type:decimal(12,2)" json:"price_change"`
	Magnitude    Magnitude           `gorm:"column:magnitude" json:"magnitude,omitempty"`
	IsRead       bool                `gorm:"column:is_read;not null;default:false" json:"is_read"`
}

func (ChangeEvent) TableName() string { return "change_event" }
