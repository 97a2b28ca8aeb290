package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
)

func SeedSource(tb testing.TB, ctx context.Context, tx *gorm.DB, domain string) *types.Source {
	tb.Helper()
	s := &types.Source{
		ID:     uuid.New(),
		Name:   domain,
		Domain: domain,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed source: %v", err)
	}
	return s
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, externalID string) *types.Product {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.Product{
		ID:          uuid.New(),
		SourceID:    sourceID,
		ExternalID:  externalID,
		Title:       "product " + externalID,
		ImageURLs:   types.EncodeImageURLs(nil),
		FirstSeenAt: now,
		LastSeenAt:  now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedVariant(tb testing.TB, ctx context.Context, tx *gorm.DB, productID uuid.UUID, externalID, price string) *types.Variant {
	tb.Helper()
	d, err := decimal.NewFromString(price)
	if err != nil {
		tb.Fatalf("seed variant price %q: %v", price, err)
	}
	v := &types.Variant{
		ID:         uuid.New(),
		ProductID:  productID,
		ExternalID: externalID,
		Title:      "variant " + externalID,
		Price:      d,
		Available:  true,
		Position:   1,
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed variant: %v", err)
	}
	return v
}

func SeedSnapshot(tb testing.TB, ctx context.Context, tx *gorm.DB, variantID uuid.UUID, price string, capturedAt time.Time) *types.VariantSnapshot {
	tb.Helper()
	d, err := decimal.NewFromString(price)
	if err != nil {
		tb.Fatalf("seed snapshot price %q: %v", price, err)
	}
	s := &types.VariantSnapshot{
		ID:         uuid.New(),
		VariantID:  variantID,
		CapturedAt: capturedAt,
		Price:      d,
		Available:  true,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed snapshot: %v", err)
	}
	return s
}

func SeedChangeEvent(tb testing.TB, ctx context.Context, tx *gorm.DB, sourceID uuid.UUID, changeType types.ChangeType, occurredAt time.Time) *types.ChangeEvent {
	tb.Helper()
	e := &types.ChangeEvent{
		ID:           uuid.New(),
		SourceID:     sourceID,
		OccurredAt:   occurredAt,
		ChangeType:   changeType,
		ProductTitle: "product",
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed change event: %v", err)
	}
	return e
}
