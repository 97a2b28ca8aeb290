package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Source is one tracked remote store. Deleting a source cascades to its
// products and change events.
type Source struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"column:name;not null" json:"name"`
	Domain        string     `gorm:"column:domain;not null;uniqueIndex" json:"domain"`
	LastFetchedAt *time.Time `gorm:"column:last_fetched_at" json:"last_fetched_at,omitempty"`
	IsSyncing     bool       `gorm:"column:is_syncing;not null;default:false" json:"is_syncing"`

	Products     []Product     `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID" json:"products,omitempty"`
	ChangeEvents []ChangeEvent `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID" json:"change_events,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Source) TableName() string { return "source" }
