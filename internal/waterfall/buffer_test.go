package waterfall

import (
	"bytes"
	"testing"
)

// TestNewBufferInitialized は新規バッファが背景値で埋まっていることをテストする
func TestNewBufferInitialized(t *testing.T) {
	b := NewBuffer(3, 4, 255)
	for i, row := range b.Snapshot() {
		for j, v := range row {
			if v != 255 {
				t.Fatalf("Row %d col %d: expected 255, got %d", i, j, v)
			}
		}
	}
}

// TestBufferSnapshotOrder はスナップショットが古い順に並ぶことをテストする
func TestBufferSnapshotOrder(t *testing.T) {
	b := NewBuffer(4, 2, 0)

	for _, v := range []byte{1, 2, 3, 4, 5} {
		b.Push([]byte{v, v})
	}

	snap := b.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(snap))
	}
	// 5本押したので最古の1本が上書きされ、2,3,4,5が残る
	for i, want := range []byte{2, 3, 4, 5} {
		if snap[i][0] != want {
			t.Errorf("Row %d: expected %d, got %d", i, want, snap[i][0])
		}
	}
}

// TestBufferSnapshotCopies はスナップショットが内部バッファと独立していることをテストする
func TestBufferSnapshotCopies(t *testing.T) {
	b := NewBuffer(2, 2, 0)
	b.Push([]byte{7, 7})

	snap := b.Snapshot()
	snap[1][0] = 99

	again := b.Snapshot()
	if again[1][0] != 7 {
		t.Errorf("Snapshot must copy rows: got %d", again[1][0])
	}
}

// TestBufferReinitOnWidthChange は幅が変わるとバッファが作り直されることをテストする
func TestBufferReinitOnWidthChange(t *testing.T) {
	b := NewBuffer(3, 4, 255)
	b.Push([]byte{1, 2, 3, 4})
	b.Push([]byte{5, 6, 7, 8})

	// 幅6のラインで再初期化される
	b.Push([]byte{9, 9, 9, 9, 9, 9})

	if b.Width() != 6 {
		t.Fatalf("Expected width 6, got %d", b.Width())
	}

	snap := b.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(snap))
	}
	// 最新行だけが残り、他は背景値
	if !bytes.Equal(snap[2], []byte{9, 9, 9, 9, 9, 9}) {
		t.Errorf("Unexpected newest row: %v", snap[2])
	}
	for i := 0; i < 2; i++ {
		for _, v := range snap[i] {
			if v != 255 {
				t.Fatalf("Row %d: expected background, got %d", i, v)
			}
		}
	}
}
