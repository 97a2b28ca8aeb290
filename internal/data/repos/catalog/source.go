package catalog

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

type SourceRepo interface {
	Create(dbc dbctx.Context, row *types.Source) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error)
	GetByDomain(dbc dbctx.Context, domain string) (*types.Source, error)
	List(dbc dbctx.Context) ([]*types.Source, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) handle(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *sourceRepo) Create(dbc dbctx.Context, row *types.Source) error {
	return r.handle(dbc).Create(row).Error
}

func (r *sourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Source
	err := r.handle(dbc).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sourceRepo) GetByDomain(dbc dbctx.Context, domain string) (*types.Source, error) {
	if domain == "" {
		return nil, nil
	}
	var out types.Source
	err := r.handle(dbc).Where("domain = ?", domain).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sourceRepo) List(dbc dbctx.Context) ([]*types.Source, error) {
	var out []*types.Source
	if err := r.handle(dbc).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sourceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return r.handle(dbc).Model(&types.Source{}).Where("id = ?", id).Updates(updates).Error
}

func (r *sourceRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return r.handle(dbc).Where("id = ?", id).Delete(&types.Source{}).Error
}
