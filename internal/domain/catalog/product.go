package catalog

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Product is one listing in a source's catalog, keyed by the store's own
// external id. Removal from the feed is a soft delete: the row stays and
// IsRemoved flips, so a later reappearance resurrects the same row instead
// of inserting a duplicate.
type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceID   uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uq_product_source_ext" json:"source_id"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex:uq_product_source_ext" json:"external_id"`

	Title       string         `gorm:"column:title;not null" json:"title"`
	Vendor      string         `gorm:"column:vendor" json:"vendor"`
	ProductType string         `gorm:"column:product_type" json:"product_type"`
	ImageURLs   datatypes.JSON `gorm:"column:image_urls" json:"image_urls"`

	FirstSeenAt time.Time `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at;not null" json:"last_seen_at"`
	IsRemoved   bool      `gorm:"column:is_removed;not null;default:false" json:"is_removed"`

	Variants []Variant `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID" json:"variants,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "product" }

// EncodeImageURLs stores an ordered URL list as the product's JSON column.
func EncodeImageURLs(urls []string) datatypes.JSON {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}

// DecodeImageURLs reads the ordered URL list back out of the JSON column.
func DecodeImageURLs(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var urls []string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return nil
	}
	return urls
}
