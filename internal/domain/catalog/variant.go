package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is one purchasable variation of a product. Price fields are exact
// decimals end to end; they are never passed through a float.
type Variant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_variant_product_ext" json:"product_id"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex:uq_variant_product_ext" json:"external_id"`

	Title          string              `gorm:"column:title" json:"title"`
	SKU            string              `gorm:"column:sku" json:"sku"`
	Price          decimal.Decimal     `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:decimal(12,2)" json:"compare_at_price"`
	Available      bool                `gorm:"column:available;not null;default:false" json:"available"`
	Position       int                 `gorm:"column:position;not null;default:0" json:"position"`

	Snapshots []VariantSnapshot `gorm:"constraint:OnDelete:CASCADE;foreignKey:VariantID" json:"snapshots,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Variant) TableName() string { return "variant" }

// VariantSnapshot captures a variant's price, compare-at price and
// availability immediately before a sync overwrote them. Rows are append-only
// and ordered by CapturedAt for price-history reconstruction.
type VariantSnapshot struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;index" json:"variant_id"`

	CapturedAt     time.Time           `gorm:"column:captured_at;not null;index" json:"captured_at"`
	Price          decimal.Decimal     `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:decimal(12,2)" json:"compare_at_price"`
	Available      bool                `gorm:"column:available;not null" json:"available"`
}

func (VariantSnapshot) TableName() string { return "variant_snapshot" }
