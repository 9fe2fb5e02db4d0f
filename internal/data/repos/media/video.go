package media

import (
	"gorm.io/gorm"

	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// VideoRepo is the dedup index and writer for raw__videos.
//
// Exists must never be conflated with "not found" on failure: an error
// return means the check could not be completed, and callers are expected
// to abort rather than risk a duplicate upload.
type VideoRepo interface {
	Exists(dbc dbctx.Context, videoUID string) (bool, error)
	Insert(dbc dbctx.Context, row *domain.Video) error
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{db: db, log: baseLog.With("repo", "VideoRepo")}
}

func (r *videoRepo) Exists(dbc dbctx.Context, videoUID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var count int64
	err := t.WithContext(dbc.Ctx).
		Model(&domain.Video{}).
		Where("video_uid = ?", videoUID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *videoRepo) Insert(dbc dbctx.Context, row *domain.Video) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Create(row).Error
}
