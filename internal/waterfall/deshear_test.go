package waterfall

import (
	"bytes"
	"math"
	"testing"
)

// TestShiftRowLinearZero はシフト0が恒等変換であることをテストする
func TestShiftRowLinearZero(t *testing.T) {
	row := []byte{0, 10, 128, 200, 255}
	got := ShiftRowLinear(row, 0, DefaultBackground)
	if !bytes.Equal(got, row) {
		t.Errorf("Expected identity %v, got %v", row, got)
	}
}

// TestShiftRowLinearInteger は整数シフトで画素が右へ移動し左端が背景になることをテストする
func TestShiftRowLinearInteger(t *testing.T) {
	row := []byte{10, 20, 30, 40}
	got := ShiftRowLinear(row, 1, 255)
	want := []byte{255, 10, 20, 30}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestShiftRowLinearFractional は半画素シフトの線形補間をテストする
func TestShiftRowLinearFractional(t *testing.T) {
	row := []byte{0, 100}
	got := ShiftRowLinear(row, 0.5, 255)
	if got[0] != 255 {
		t.Errorf("Expected background at index 0, got %d", got[0])
	}
	if got[1] != 50 {
		t.Errorf("Expected interpolated 50, got %d", got[1])
	}
}

// TestShiftRowLinearNegative は負のシフトで画素が左へ移動し右端が背景になることをテストする
func TestShiftRowLinearNegative(t *testing.T) {
	row := []byte{10, 20, 30, 40}
	got := ShiftRowLinear(row, -1, 255)
	want := []byte{20, 30, 40, 255}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestShiftRowLinearLargeShift は行幅を超えるシフトで全画素が背景になることをテストする
func TestShiftRowLinearLargeShift(t *testing.T) {
	row := []byte{10, 20, 30}
	got := ShiftRowLinear(row, 10, 255)
	for i, v := range got {
		if v != 255 {
			t.Errorf("Expected background at index %d, got %d", i, v)
		}
	}
}

// TestDeshearIdentity は角度0が全行で恒等変換であることをテストする
func TestDeshearIdentity(t *testing.T) {
	rows := [][]byte{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
	}
	got := Deshear(rows, 0, 1.0, 1.0, DefaultBackground)
	for i := range rows {
		if !bytes.Equal(got[i], rows[i]) {
			t.Errorf("Row %d: expected %v, got %v", i, rows[i], got[i])
		}
	}
}

// TestDeshearMonotonicShift は正の角度でシフトが行番号に対して単調増加することをテストする
func TestDeshearMonotonicShift(t *testing.T) {
	const width = 16
	rows := make([][]byte, 8)
	for i := range rows {
		rows[i] = make([]byte, width)
		rows[i][0] = 255
	}

	// 角度45度、dy=px なら1行あたり約1ピクセルのシフト
	got := Deshear(rows, 45, 1.0, 1.0, 0)

	prev := -1
	for i, row := range got {
		pos := bytes.IndexByte(row, 255)
		if pos < 0 {
			t.Fatalf("Row %d: bright pixel not found", i)
		}
		if pos <= prev && i > 0 {
			t.Errorf("Row %d: shift not monotonic (%d -> %d)", i, prev, pos)
		}
		prev = pos
	}
}

// TestDeshearPure はDeshearが入力を変更しないことをテストする
func TestDeshearPure(t *testing.T) {
	rows := [][]byte{{1, 2, 3}, {4, 5, 6}}
	orig := [][]byte{{1, 2, 3}, {4, 5, 6}}

	_ = Deshear(rows, 30, 2.0, 1.5, DefaultBackground)

	for i := range rows {
		if !bytes.Equal(rows[i], orig[i]) {
			t.Errorf("Row %d mutated: %v", i, rows[i])
		}
	}
}

// TestShiftPerLine はシフト量の計算をテストする
func TestShiftPerLine(t *testing.T) {
	if got := ShiftPerLine(0, 1.0, 1.0); got != 0 {
		t.Errorf("Expected 0 for angle 0, got %f", got)
	}
	if got := ShiftPerLine(45, 1.0, 1.0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("Expected 1.0 for 45 degrees, got %f", got)
	}
	// 画素ピッチが大きいほどシフトは小さい
	if got := ShiftPerLine(45, 1.0, 2.0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Expected 0.5, got %f", got)
	}
}
