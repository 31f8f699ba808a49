package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestListRecordings(t *testing.T) {
	dir := t.TempDir()

	files := []string{"vid_20260101-120000.mp4", "wtf_20260101-120100.wtf", "img_20260101-120200.png", "notes.txt"}
	for i, name := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		// 新しい順の並びを確認できるよう更新時刻をずらす
		mtime := time.Now().Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatalf("Chtimes failed: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "raw_20260101-120000"), 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	recordings, err := ListRecordings(dir)
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recordings) != 3 {
		t.Fatalf("Expected 3 recordings, got %d", len(recordings))
	}
	if recordings[0].Name != "img_20260101-120200.png" {
		t.Errorf("Expected newest first, got %s", recordings[0].Name)
	}
	if recordings[0].Kind != "snapshot" {
		t.Errorf("Expected kind snapshot, got %s", recordings[0].Kind)
	}
	if recordings[2].Kind != "video" {
		t.Errorf("Expected kind video, got %s", recordings[2].Kind)
	}
	if recordings[1].SizeBytes != 1 {
		t.Errorf("Expected size 1, got %d", recordings[1].SizeBytes)
	}
}

func TestListRecordingsMissingDir(t *testing.T) {
	recordings, err := ListRecordings(filepath.Join(t.TempDir(), "なし"))
	if err != nil {
		t.Fatalf("ListRecordings failed: %v", err)
	}
	if len(recordings) != 0 {
		t.Errorf("Expected empty list, got %d entries", len(recordings))
	}
}
