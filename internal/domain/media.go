package domain

// Row models for the analytical tables. All three tables are append-only:
// the ingestion pipelines never update or delete rows.

// SourceTypes are the accepted origins for uploaded media.
var SourceTypes = map[string]bool{
	"public":    true,
	"captured":  true,
	"simulated": true,
}

// Video is one ingested video, keyed by the SHA-256 of its full byte
// stream. One row per unique video identity.
type Video struct {
	VideoUID   string  `gorm:"column:video_uid;primaryKey;size:64" json:"video_uid"`
	GCSURI     string  `gorm:"column:gcs_uri" json:"gcs_uri"`
	DurationMS int64   `gorm:"column:duration_ms" json:"duration_ms"`
	FPS        float64 `gorm:"column:fps" json:"fps"`
	Codec      string  `gorm:"column:codec" json:"codec"`
	SourceType string  `gorm:"column:source_type;index" json:"source_type"`
	SourceName string  `gorm:"column:source_name" json:"source_name"`
	IngestTS   string  `gorm:"column:ingest_ts" json:"ingest_ts"`
	NBFrames   int     `gorm:"column:nb_frames" json:"nb_frames"`
}

func (Video) TableName() string { return "raw__videos" }

// Image is one derived image artifact: either a frame sampled from a
// video or a member of an uploaded zip archive. For frames the UID is
// scoped to the parent video and timestamp; for zip images it is the
// plain content hash, so SHA256 may differ from ImageUID only for frames.
type Image struct {
	ImageUID      string `gorm:"column:image_uid;primaryKey;size:64" json:"image_uid"`
	SourceType    string `gorm:"column:source_type;index" json:"source_type"`
	SourceName    string `gorm:"column:source_name" json:"source_name"`
	GCSURI        string `gorm:"column:gcs_uri" json:"gcs_uri"`
	IngestTS      string `gorm:"column:ingest_ts" json:"ingest_ts"`
	Width         int    `gorm:"column:width" json:"width"`
	Height        int    `gorm:"column:height" json:"height"`
	Format        string `gorm:"column:format" json:"format"`
	SHA256        string `gorm:"column:sha256;size:64;index" json:"sha256"`
	FileSizeBytes int64  `gorm:"column:file_size_bytes" json:"file_size_bytes"`
}

func (Image) TableName() string { return "raw__images" }

// FrameLineage links a sampled frame back to its parent video and its
// temporal position. Zip-sourced images carry no lineage row.
type FrameLineage struct {
	ImageUID     string `gorm:"column:image_uid;primaryKey;size:64" json:"image_uid"`
	VideoUID     string `gorm:"column:video_uid;size:64;index" json:"video_uid"`
	FrameIdx     int    `gorm:"column:frame_idx" json:"frame_idx"`
	TimestampMS  int64  `gorm:"column:timestamp_ms" json:"timestamp_ms"`
	ExtractJobID string `gorm:"column:extract_job_id" json:"extract_job_id"`
}

func (FrameLineage) TableName() string { return "frame__lineage" }
