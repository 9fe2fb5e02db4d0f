package gcp

import "testing"

func TestObjectKeys(t *testing.T) {
	got := VideoObjectKey("public", "youtube", "20250102T030405Z", "abc.mp4")
	if want := "raw/videos/public/youtube/20250102T030405Z/abc.mp4"; got != want {
		t.Fatalf("video key: want %s got %s", want, got)
	}

	got = ImageObjectKey("captured", "scenes-v1", "20250102T030405Z", "def.jpg")
	if want := "raw/images/captured/scenes-v1/20250102T030405Z/def.jpg"; got != want {
		t.Fatalf("image key: want %s got %s", want, got)
	}
}

func TestParseURIRoundTrip(t *testing.T) {
	uri := ObjectURI("my-bucket", "tmp/videos/abc.mp4")
	if uri != "gs://my-bucket/tmp/videos/abc.mp4" {
		t.Fatalf("ObjectURI: %s", uri)
	}

	bucket, object, err := ParseURI(uri)
	if err != nil {
		t.Fatalf("ParseURI: %v", err)
	}
	if bucket != "my-bucket" || object != "tmp/videos/abc.mp4" {
		t.Fatalf("round trip: %s / %s", bucket, object)
	}
}

func TestParseURIErrors(t *testing.T) {
	for _, uri := range []string{
		"",
		"http://bucket/object",
		"gs://",
		"gs://bucket-only",
		"gs://bucket/",
		"gs:///object",
	} {
		if _, _, err := ParseURI(uri); err == nil {
			t.Fatalf("ParseURI(%q): expected error", uri)
		}
	}
}
