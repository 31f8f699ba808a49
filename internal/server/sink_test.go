package server

import (
	"testing"
	"time"

	"rensha/internal/acquire"
	"rensha/internal/camera"
)

// TestPreviewHubFrame はフレーム保持とウォーターフォール蓄積をテストする
func TestPreviewHubFrame(t *testing.T) {
	hub := NewPreviewHub(10, 4, 255, nil)

	if _, ok := hub.Frame(); ok {
		t.Error("Expected no frame before OnFrame")
	}

	// 全行同値のフレームなら中央値は行そのもの
	frame := &camera.Frame{
		Pix:    []byte{10, 20, 30, 40, 10, 20, 30, 40},
		Width:  4,
		Height: 2,
	}
	hub.OnFrame(frame)

	got, ok := hub.Frame()
	if !ok {
		t.Fatal("Expected frame after OnFrame")
	}
	if got != frame {
		t.Error("Expected the same frame pointer")
	}

	// リングは常に全行を返し、積んだラインは末尾（最新）に入る
	rows := hub.WaterfallRows()
	if len(rows) != 10 {
		t.Fatalf("Expected 10 rows, got %d", len(rows))
	}
	last := rows[len(rows)-1]
	for x, want := range []byte{10, 20, 30, 40} {
		if last[x] != want {
			t.Errorf("last[%d] = %d, want %d", x, last[x], want)
		}
	}
	if rows[0][0] != 255 {
		t.Errorf("Expected background 255, got %d", rows[0][0])
	}
	if hub.WaterfallWidth() != 4 {
		t.Errorf("Expected width 4, got %d", hub.WaterfallWidth())
	}
}

// TestPreviewHubStats は統計値の保持をテストする
func TestPreviewHubStats(t *testing.T) {
	hub := NewPreviewHub(10, 4, 255, nil)

	stats := acquire.Stats{Recording: true, Frames: 42, Elapsed: 1.5, FPS: 28.0}
	hub.OnStats(stats)

	got := hub.Stats()
	if got != stats {
		t.Errorf("Stats = %+v, want %+v", got, stats)
	}
}

// TestPreviewHubAutoStop は自動停止時刻の記録をテストする
func TestPreviewHubAutoStop(t *testing.T) {
	hub := NewPreviewHub(10, 4, 255, nil)

	if _, ok := hub.LastAutoStop(); ok {
		t.Error("Expected no auto stop time initially")
	}

	before := time.Now()
	hub.OnAutoStop()

	at, ok := hub.LastAutoStop()
	if !ok {
		t.Fatal("Expected auto stop time after OnAutoStop")
	}
	if at.Before(before) {
		t.Errorf("Auto stop time %v is before %v", at, before)
	}
}
