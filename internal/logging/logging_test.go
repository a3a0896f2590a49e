package logging

import (
	"sort"
	"testing"
)

func TestWithField(t *testing.T) {
	f := WithField("mediaId", "m1")
	if f.Key != "mediaId" {
		t.Errorf("Key = %q, want mediaId", f.Key)
	}
}

func TestWithFields(t *testing.T) {
	fields := WithFields(map[string]interface{}{
		"bucket": "evidence",
		"region": "us-east-1",
	})
	if len(fields) != 2 {
		t.Fatalf("len = %d, want 2", len(fields))
	}

	keys := []string{fields[0].Key, fields[1].Key}
	sort.Strings(keys)
	if keys[0] != "bucket" || keys[1] != "region" {
		t.Errorf("keys = %v, want [bucket region]", keys)
	}

	// The slice splats directly into a log call.
	logger := New(LevelError)
	logger.Info("ignored", fields...)
}

func TestWithFields_Empty(t *testing.T) {
	if fields := WithFields(nil); len(fields) != 0 {
		t.Errorf("len = %d, want 0", len(fields))
	}
}
