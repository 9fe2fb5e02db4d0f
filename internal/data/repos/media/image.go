package media

import (
	"gorm.io/gorm"

	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// ImageRepo writes raw__images rows and answers batched dedup probes.
type ImageRepo interface {
	// ExistingUIDs returns the subset of uids already present, using one
	// set-membership query. Callers chunk large uid sets (see
	// DedupProbeLimit) to bound query size.
	ExistingUIDs(dbc dbctx.Context, uids []string) (map[string]bool, error)

	// InsertChunked appends rows in order, one insert per chunk of at most
	// chunkSize rows. A chunk failure aborts immediately; chunks already
	// written stay written.
	InsertChunked(dbc dbctx.Context, rows []*domain.Image, chunkSize int) error
}

// DedupProbeLimit bounds the uid count per ExistingUIDs call.
const DedupProbeLimit = 2000

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	return &imageRepo{db: db, log: baseLog.With("repo", "ImageRepo")}
}

func (r *imageRepo) ExistingUIDs(dbc dbctx.Context, uids []string) (map[string]bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	existing := make(map[string]bool, len(uids))
	if len(uids) == 0 {
		return existing, nil
	}
	var found []string
	err := t.WithContext(dbc.Ctx).
		Model(&domain.Image{}).
		Where("image_uid IN ?", uids).
		Pluck("image_uid", &found).Error
	if err != nil {
		return nil, err
	}
	for _, uid := range found {
		existing[uid] = true
	}
	return existing, nil
}

func (r *imageRepo) InsertChunked(dbc dbctx.Context, rows []*domain.Image, chunkSize int) error {
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
