package catalog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

type ProductRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Product) error
	// GetActiveBySource returns non-removed products with variants preloaded
	// in stored order.
	GetActiveBySource(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.Product, error)
	// GetRemovedByExternalIDs returns soft-deleted products whose external id
	// is in ids — the resurrection candidates for a fetch.
	GetRemovedByExternalIDs(dbc dbctx.Context, sourceID uuid.UUID, ids []string) ([]*types.Product, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Product, error)
	Save(dbc dbctx.Context, row *types.Product) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) handle(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *productRepo) CreateBatch(dbc dbctx.Context, rows []*types.Product) error {
	if len(rows) == 0 {
		return nil
	}
	return r.handle(dbc).Create(&rows).Error
}

func (r *productRepo) GetActiveBySource(dbc dbctx.Context, sourceID uuid.UUID) ([]*types.Product, error) {
	var out []*types.Product
	if sourceID == uuid.Nil {
		return out, nil
	}
	err := r.handle(dbc).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, external_id ASC")
		}).
		Where("source_id = ? AND is_removed = ?", sourceID, false).
		Order("first_seen_at ASC, external_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetRemovedByExternalIDs(dbc dbctx.Context, sourceID uuid.UUID, ids []string) ([]*types.Product, error) {
	var out []*types.Product
	if sourceID == uuid.Nil || len(ids) == 0 {
		return out, nil
	}
	err := r.handle(dbc).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, external_id ASC")
		}).
		Where("source_id = ? AND is_removed = ? AND external_id IN ?", sourceID, true, ids).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Product, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Product
	err := r.handle(dbc).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, external_id ASC")
		}).
		Where("id = ?", id).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *productRepo) Save(dbc dbctx.Context, row *types.Product) error {
	if row == nil {
		return nil
	}
	// Omit associations: variant rows are written through VariantRepo.
	return r.handle(dbc).Omit("Variants").Save(row).Error
}
