package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

type VariantRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Variant) error
	Save(dbc dbctx.Context, row *types.Variant) error
	DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type variantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	return &variantRepo{db: db, log: baseLog.With("repo", "VariantRepo")}
}

func (r *variantRepo) handle(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *variantRepo) CreateBatch(dbc dbctx.Context, rows []*types.Variant) error {
	if len(rows) == 0 {
		return nil
	}
	return r.handle(dbc).Create(&rows).Error
}

func (r *variantRepo) Save(dbc dbctx.Context, row *types.Variant) error {
	if row == nil {
		return nil
	}
	return r.handle(dbc).Omit("Snapshots").Save(row).Error
}

func (r *variantRepo) DeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).Where("id IN ?", ids).Delete(&types.Variant{}).Error
}

type SnapshotRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.VariantSnapshot) error
	// GetByVariant returns snapshots oldest first for price-history display.
	GetByVariant(dbc dbctx.Context, variantID uuid.UUID) ([]*types.VariantSnapshot, error)
	DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) handle(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *snapshotRepo) CreateBatch(dbc dbctx.Context, rows []*types.VariantSnapshot) error {
	if len(rows) == 0 {
		return nil
	}
	return r.handle(dbc).Create(&rows).Error
}

func (r *snapshotRepo) GetByVariant(dbc dbctx.Context, variantID uuid.UUID) ([]*types.VariantSnapshot, error) {
	var out []*types.VariantSnapshot
	if variantID == uuid.Nil {
		return out, nil
	}
	err := r.handle(dbc).
		Where("variant_id = ?", variantID).
		Order("captured_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *snapshotRepo) DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.handle(dbc).Where("captured_at < ?", cutoff).Delete(&types.VariantSnapshot{})
	return res.RowsAffected, res.Error
}
