package media

import (
	"gorm.io/gorm"

	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// LineageRepo writes frame__lineage rows.
type LineageRepo interface {
	InsertChunked(dbc dbctx.Context, rows []*domain.FrameLineage, chunkSize int) error
}

type lineageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLineageRepo(db *gorm.DB, baseLog *logger.Logger) LineageRepo {
	return &lineageRepo{db: db, log: baseLog.With("repo", "LineageRepo")}
}

func (r *lineageRepo) InsertChunked(dbc dbctx.Context, rows []*domain.FrameLineage, chunkSize int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	for _, chunk := range chunkRows(rows, chunkSize) {
		if err := t.WithContext(dbc.Ctx).Create(&chunk).Error; err != nil {
			return err
		}
	}
	return nil
}
