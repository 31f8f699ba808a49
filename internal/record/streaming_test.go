package record

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"rensha/internal/camera"
)

// mockEncoder はエンコーダセッションのモック
type mockEncoder struct {
	mu        sync.Mutex
	frames    [][]byte
	entered   chan struct{}
	block     chan struct{}
	writeErr  error
	finishErr error
	finished  bool
}

func (m *mockEncoder) WriteFrame(pix []byte) error {
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.block != nil {
		<-m.block
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(pix))
	copy(buf, pix)
	m.frames = append(m.frames, buf)
	return nil
}

func (m *mockEncoder) Finish(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
	return m.finishErr
}

func (m *mockEncoder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// grayFrame はテスト用の8ビット単色フレームを作る
func grayFrame(width, height int, fill byte) *camera.Frame {
	pix := make([]byte, width*height)
	for i := range pix {
		pix[i] = fill
	}
	return &camera.Frame{Width: width, Height: height, BitDepth: 8, Pix: pix}
}

// TestStreamingWorkerEndToEnd は90フレームの書き込みがすべてエンコーダへ届くことを確認する
func TestStreamingWorkerEndToEnd(t *testing.T) {
	mock := &mockEncoder{}
	w := NewStreamingWorker(StreamConfig{
		Path:      "vid_test.mp4",
		Width:     640,
		Height:    480,
		FrameRate: 30,
	})
	w.newSession = func() (encoderSession, error) { return mock, nil }

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 90; i++ {
		if !w.Write(grayFrame(640, 480, byte(i))) {
			t.Fatalf("Write %d rejected", i)
		}
	}

	result, err := w.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if result.Count != 90 {
		t.Errorf("Expected count 90, got %d", result.Count)
	}
	if result.Path != "vid_test.mp4" {
		t.Errorf("Expected path vid_test.mp4, got %s", result.Path)
	}
	if mock.count() != 90 {
		t.Errorf("Expected 90 encoded frames, got %d", mock.count())
	}
	if len(mock.frames[0]) != 640*480 {
		t.Errorf("Expected frame size %d, got %d", 640*480, len(mock.frames[0]))
	}
	if !mock.finished {
		t.Error("Expected encoder session to be finalized")
	}
}

// TestStreamingWorkerDropNewest はキュー満杯時に新しいフレームが破棄されることを確認する
func TestStreamingWorkerDropNewest(t *testing.T) {
	mock := &mockEncoder{
		entered: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	w := NewStreamingWorker(StreamConfig{
		Path:      "vid_test.mp4",
		Width:     4,
		Height:    2,
		FrameRate: 30,
		QueueSize: 2,
	})
	w.newSession = func() (encoderSession, error) { return mock, nil }

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 1枚目がエンコーダ内で停止するまで待つ
	if !w.Write(grayFrame(4, 2, 1)) {
		t.Fatal("Write 1 rejected")
	}
	select {
	case <-mock.entered:
	case <-time.After(time.Second):
		t.Fatal("encoder never received the first frame")
	}

	// キューを満杯にする
	if !w.Write(grayFrame(4, 2, 2)) {
		t.Fatal("Write 2 rejected")
	}
	if !w.Write(grayFrame(4, 2, 3)) {
		t.Fatal("Write 3 rejected")
	}

	// 満杯時のWriteは即座にfalseを返す
	start := time.Now()
	if w.Write(grayFrame(4, 2, 4)) {
		t.Error("Expected Write to reject the frame while queue is full")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Write blocked for %v", elapsed)
	}

	close(mock.block)
	result, err := w.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if result.Count != 3 {
		t.Errorf("Expected count 3, got %d", result.Count)
	}
	if mock.count() != 3 {
		t.Errorf("Expected 3 encoded frames, got %d", mock.count())
	}
}

func TestStreamingWorkerWriteAfterStop(t *testing.T) {
	mock := &mockEncoder{}
	w := NewStreamingWorker(StreamConfig{Path: "vid_test.mp4", Width: 4, Height: 2, FrameRate: 30})
	w.newSession = func() (encoderSession, error) { return mock, nil }

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if w.Write(grayFrame(4, 2, 0)) {
		t.Error("Expected Write after Stop to return false")
	}
	if _, err := w.Stop(); err == nil {
		t.Error("Expected second Stop to fail")
	}
}

func TestStreamingWorkerStartFailure(t *testing.T) {
	w := NewStreamingWorker(StreamConfig{Path: "vid_test.mp4", Width: 4, Height: 2, FrameRate: 30})
	w.newSession = func() (encoderSession, error) {
		return nil, fmt.Errorf("エンコーダの起動に失敗")
	}

	if err := w.Start(); err == nil {
		t.Fatal("Expected Start to fail")
	}
	if w.Write(grayFrame(4, 2, 0)) {
		t.Error("Expected Write to return false after failed Start")
	}
	if _, err := w.Stop(); err == nil {
		t.Error("Expected Stop to fail after failed Start")
	}
}

func TestStreamingWorkerDoubleStart(t *testing.T) {
	mock := &mockEncoder{}
	w := NewStreamingWorker(StreamConfig{Path: "vid_test.mp4", Width: 4, Height: 2, FrameRate: 30})
	w.newSession = func() (encoderSession, error) { return mock, nil }

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(); err == nil {
		t.Error("Expected second Start to fail")
	}
	if _, err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
