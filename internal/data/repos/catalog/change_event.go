package catalog

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
)

type ChangeEventRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.ChangeEvent) error
	GetBySource(dbc dbctx.Context, sourceID uuid.UUID, unreadOnly bool) ([]*types.ChangeEvent, error)
	CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error)
	MarkRead(dbc dbctx.Context, ids []uuid.UUID) error
	DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
}

type changeEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeEventRepo(db *gorm.DB, baseLog *logger.Logger) ChangeEventRepo {
	return &changeEventRepo{db: db, log: baseLog.With("repo", "ChangeEventRepo")}
}

func (r *changeEventRepo) handle(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *changeEventRepo) CreateBatch(dbc dbctx.Context, rows []*types.ChangeEvent) error {
	if len(rows) == 0 {
		return nil
	}
	return r.handle(dbc).Create(&rows).Error
}

func (r *changeEventRepo) GetBySource(dbc dbctx.Context, sourceID uuid.UUID, unreadOnly bool) ([]*types.ChangeEvent, error) {
	var out []*types.ChangeEvent
	if sourceID == uuid.Nil {
		return out, nil
	}
	q := r.handle(dbc).Where("source_id = ?", sourceID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if err := q.Order("occurred_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *changeEventRepo) CountBySource(dbc dbctx.Context, sourceID uuid.UUID) (int64, error) {
	var n int64
	err := r.handle(dbc).Model(&types.ChangeEvent{}).Where("source_id = ?", sourceID).Count(&n).Error
	return n, err
}

func (r *changeEventRepo) MarkRead(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.handle(dbc).Model(&types.ChangeEvent{}).Where("id IN ?", ids).Update("is_read", true).Error
}

func (r *changeEventRepo) DeleteOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.handle(dbc).Where("occurred_at < ?", cutoff).Delete(&types.ChangeEvent{})
	return res.RowsAffected, res.Error
}
