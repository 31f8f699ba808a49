package server

import (
	"log"
	"sync"
	"time"

	"rensha/internal/acquire"
	"rensha/internal/camera"
	"rensha/internal/waterfall"
)

// PreviewHub は取得ループからのイベントを受けてプレビュー配信用に保持する
// OnFrameは最新フレームの差し替えとライン縮約だけを行い、ループを待たせない
type PreviewHub struct {
	ring   *waterfall.Buffer
	logger *log.Logger

	mu           sync.RWMutex
	frame        *camera.Frame
	stats        acquire.Stats
	lastAutoStop time.Time
}

// NewPreviewHub は新しいPreviewHubを作成する
func NewPreviewHub(lines, width int, background byte, logger *log.Logger) *PreviewHub {
	if logger == nil {
		logger = log.Default()
	}
	return &PreviewHub{
		ring:   waterfall.NewBuffer(lines, width, background),
		logger: logger,
	}
}

// OnFrame は最新フレームを差し替え、ウォーターフォールリングへ1ライン積む
func (h *PreviewHub) OnFrame(f *camera.Frame) {
	h.mu.Lock()
	h.frame = f
	h.mu.Unlock()

	h.ring.Push(waterfall.MedianColumns(f.Gray8(), f.Width, f.Height))
}

// OnStats は最新の統計スナップショットを保持する
func (h *PreviewHub) OnStats(s acquire.Stats) {
	h.mu.Lock()
	h.stats = s
	h.mu.Unlock()
}

// OnAutoStop は自動停止の発生を記録する
func (h *PreviewHub) OnAutoStop() {
	h.mu.Lock()
	h.lastAutoStop = time.Now()
	h.mu.Unlock()
	h.logger.Printf("録画が上限に達して自動停止しました")
}

// Frame は最新フレームを返す。まだ1枚も来ていなければfalse
func (h *PreviewHub) Frame() (*camera.Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.frame == nil {
		return nil, false
	}
	return h.frame, true
}

// Stats は最新の統計スナップショットを返す
func (h *PreviewHub) Stats() acquire.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// LastAutoStop は最後に自動停止した時刻を返す。未発生ならfalse
func (h *PreviewHub) LastAutoStop() (time.Time, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.lastAutoStop.IsZero() {
		return time.Time{}, false
	}
	return h.lastAutoStop, true
}

// WaterfallRows はライブウォーターフォールの行を古い順で返す
func (h *PreviewHub) WaterfallRows() [][]byte {
	return h.ring.Snapshot()
}

// WaterfallWidth はリングの現在の幅を返す
func (h *PreviewHub) WaterfallWidth() int {
	return h.ring.Width()
}
