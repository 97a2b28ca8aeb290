package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mannyc2/watchify-app-sub000/internal/data/repos/testutil"
	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
)

func TestSourceDomainUnique(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewSourceRepo(tx, testutil.Logger(t))

	testutil.SeedSource(t, ctx, tx, "dup.example.com")
	err := repo.Create(dbctx.New(ctx), &types.Source{
		ID:     uuid.New(),
		Name:   "duplicate",
		Domain: "dup.example.com",
	})
	if err == nil {
		t.Fatalf("second source with the same domain must violate the unique index")
	}
}

func TestSourceGetByDomainMissingIsNil(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewSourceRepo(tx, testutil.Logger(t))

	got, err := repo.GetByDomain(dbctx.New(ctx), "nowhere.example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Fatalf("missing domain should be (nil, nil), got %+v", got)
	}
}

func TestProductExternalIDUniquePerSource(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewProductRepo(tx, testutil.Logger(t))

	srcA := testutil.SeedSource(t, ctx, tx, "unique-a.example.com")
	srcB := testutil.SeedSource(t, ctx, tx, "unique-b.example.com")
	testutil.SeedProduct(t, ctx, tx, srcA.ID, "p1")

	now := time.Now()
	dup := &types.Product{
		ID: uuid.New(), SourceID: srcA.ID, ExternalID: "p1",
		Title: "dup", ImageURLs: types.EncodeImageURLs(nil),
		FirstSeenAt: now, LastSeenAt: now,
	}
	if err := repo.CreateBatch(dbctx.New(ctx), []*types.Product{dup}); err == nil {
		t.Fatalf("same external id within one source must violate the unique index")
	}

	// The same external id under another source is fine.
	other := &types.Product{
		ID: uuid.New(), SourceID: srcB.ID, ExternalID: "p1",
		Title: "other", ImageURLs: types.EncodeImageURLs(nil),
		FirstSeenAt: now, LastSeenAt: now,
	}
	if err := repo.CreateBatch(dbctx.New(ctx), []*types.Product{other}); err != nil {
		t.Fatalf("same external id across sources should insert: %v", err)
	}
}

func TestGetActiveBySourceExcludesRemoved(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewProductRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "active.example.com")
	live := testutil.SeedProduct(t, ctx, tx, src.ID, "live")
	testutil.SeedVariant(t, ctx, tx, live.ID, "v1", "10.00")

	gone := testutil.SeedProduct(t, ctx, tx, src.ID, "gone")
	if err := tx.Model(gone).Update("is_removed", true).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	got, err := repo.GetActiveBySource(dbctx.New(ctx), src.ID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "live" {
		t.Fatalf("want only the live product, got %+v", got)
	}
	if len(got[0].Variants) != 1 {
		t.Fatalf("variants should be preloaded, got %d", len(got[0].Variants))
	}
}

func TestGetRemovedByExternalIDs(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewProductRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "removed.example.com")
	gone := testutil.SeedProduct(t, ctx, tx, src.ID, "gone")
	if err := tx.Model(gone).Update("is_removed", true).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	testutil.SeedProduct(t, ctx, tx, src.ID, "live")

	got, err := repo.GetRemovedByExternalIDs(dbctx.New(ctx), src.ID, []string{"gone", "live", "never"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "gone" {
		t.Fatalf("want only the soft-deleted candidate, got %+v", got)
	}

	got, err = repo.GetRemovedByExternalIDs(dbctx.New(ctx), src.ID, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty id list should short-circuit, got %v / %v", got, err)
	}
}

func TestVariantDeleteCascadesSnapshots(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	variants := NewVariantRepo(tx, testutil.Logger(t))
	snapshots := NewSnapshotRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "cascade.example.com")
	p := testutil.SeedProduct(t, ctx, tx, src.ID, "p1")
	v := testutil.SeedVariant(t, ctx, tx, p.ID, "v1", "10.00")
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "9.00", time.Now().Add(-time.Hour))
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "10.00", time.Now())

	if err := variants.DeleteByIDs(dbctx.New(ctx), []uuid.UUID{v.ID}); err != nil {
		t.Fatalf("delete variant: %v", err)
	}

	got, err := snapshots.GetByVariant(dbctx.New(ctx), v.ID)
	if err != nil {
		t.Fatalf("query snapshots: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("snapshots should cascade with their variant, got %d", len(got))
	}
}

func TestSourceDeleteCascadesEverything(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	repo := NewSourceRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "cascade-all.example.com")
	p := testutil.SeedProduct(t, ctx, tx, src.ID, "p1")
	v := testutil.SeedVariant(t, ctx, tx, p.ID, "v1", "10.00")
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "10.00", time.Now())
	testutil.SeedChangeEvent(t, ctx, tx, src.ID, types.ChangeTypeNewProduct, time.Now())

	if err := repo.Delete(dbctx.New(ctx), src.ID); err != nil {
		t.Fatalf("delete source: %v", err)
	}

	for _, probe := range []struct {
		name  string
		model interface{}
	}{
		{"product", &types.Product{}},
		{"variant", &types.Variant{}},
		{"variant_snapshot", &types.VariantSnapshot{}},
		{"change_event", &types.ChangeEvent{}},
	} {
		var n int64
		if err := tx.Model(probe.model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", probe.name, err)
		}
		if n != 0 {
			t.Fatalf("%s rows should cascade with the source, %d left", probe.name, n)
		}
	}
}

func TestSnapshotsOrderedByCapture(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	snapshots := NewSnapshotRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "history.example.com")
	p := testutil.SeedProduct(t, ctx, tx, src.ID, "p1")
	v := testutil.SeedVariant(t, ctx, tx, p.ID, "v1", "10.00")

	base := time.Now().Add(-3 * time.Hour)
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "12.00", base.Add(2*time.Hour))
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "10.00", base)
	testutil.SeedSnapshot(t, ctx, tx, v.ID, "11.00", base.Add(time.Hour))

	got, err := snapshots.GetByVariant(dbctx.New(ctx), v.ID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 snapshots, got %d", len(got))
	}
	for i, want := range []string{"10.00", "11.00", "12.00"} {
		if got[i].Price.StringFixed(2) != want {
			t.Fatalf("snapshot[%d]: want price %s got %s", i, want, got[i].Price.StringFixed(2))
		}
	}
}

func TestChangeEventsUnreadFilterAndMarkRead(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	events := NewChangeEventRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "events.example.com")
	older := testutil.SeedChangeEvent(t, ctx, tx, src.ID, types.ChangeTypePriceDropped, time.Now().Add(-time.Hour))
	newer := testutil.SeedChangeEvent(t, ctx, tx, src.ID, types.ChangeTypeBackInStock, time.Now())

	all, err := events.GetBySource(dbctx.New(ctx), src.ID, false)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 2 || all[0].ID != newer.ID {
		t.Fatalf("want newest first, got %+v", all)
	}

	if err := events.MarkRead(dbctx.New(ctx), []uuid.UUID{older.ID}); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	unread, err := events.GetBySource(dbctx.New(ctx), src.ID, true)
	if err != nil {
		t.Fatalf("query unread: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != newer.ID {
		t.Fatalf("want only the unread event, got %+v", unread)
	}
}

func TestChangeEventsDeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	tx := testutil.Tx(t, testutil.DB(t))
	events := NewChangeEventRepo(tx, testutil.Logger(t))

	src := testutil.SeedSource(t, ctx, tx, "retention-repo.example.com")
	cutoff := time.Now().Add(-24 * time.Hour)
	testutil.SeedChangeEvent(t, ctx, tx, src.ID, types.ChangeTypeNewProduct, cutoff.Add(-time.Hour))
	kept := testutil.SeedChangeEvent(t, ctx, tx, src.ID, types.ChangeTypeNewProduct, cutoff.Add(time.Hour))

	n, err := events.DeleteOlderThan(dbctx.New(ctx), cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 deleted row reported, got %d", n)
	}
	remaining, err := events.GetBySource(dbctx.New(ctx), src.ID, false)
	if err != nil || len(remaining) != 1 || remaining[0].ID != kept.ID {
		t.Fatalf("want only the recent event kept, got %v / %v", remaining, err)
	}
}
