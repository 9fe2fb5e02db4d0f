package services

import "time"

// Terminal statuses of one ingestion run.
const (
	StatusOK        = "ok"
	StatusDuplicate = "duplicate"
	StatusRejected  = "rejected"
	StatusError     = "error"
)

// jobTSFormat is the compact, path-safe UTC timestamp that groups all
// artifacts of one run under a common storage prefix.
const jobTSFormat = "20060102T150405Z"

// PipelineResult is the outcome of a video ingestion run.
type PipelineResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	NBFrames int    `json:"nb_frames"`
}

// ZipIngestResult is the outcome of a zip ingestion run, with per-item
// counts: items inserted, skipped as already-present duplicates, and
// rejected as invalid (unreadable, empty or undecodable).
type ZipIngestResult struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	Inserted          int    `json:"nb_images_inserted"`
	SkippedDuplicates int    `json:"nb_images_skipped_duplicates"`
	Invalid           int    `json:"nb_images_invalid"`
}

// runClock returns the two timestamps of an ingestion run: the record
// ingest timestamp and the coarser job timestamp used in object keys.
// Both are captured once and reused for every artifact of the run.
func runClock(now time.Time) (ingestTS, jobTS string) {
	utc := now.UTC()
	return utc.Format(time.RFC3339), utc.Format(jobTSFormat)
}
