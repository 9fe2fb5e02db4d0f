package gcp

import "fmt"

// Archive object keys. All artifacts from one run share a job_ts path
// segment, a single UTC timestamp captured at run start and formatted
// YYYYMMDDTHHMMSSZ.

func VideoObjectKey(sourceType, provider, jobTS, filename string) string {
	return fmt.Sprintf("raw/videos/%s/%s/%s/%s", sourceType, provider, jobTS, filename)
}

func ImageObjectKey(sourceType, providerOrDataset, jobTS, filename string) string {
	return fmt.Sprintf("raw/images/%s/%s/%s/%s", sourceType, providerOrDataset, jobTS, filename)
}
