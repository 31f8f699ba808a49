package acquire

import "testing"

// TestReached は上限判定の境界を確認する
func TestReached(t *testing.T) {
	tests := []struct {
		name       string
		count      int64
		maxCount   int64
		elapsed    float64
		maxSeconds float64
		expected   bool
	}{
		{"上限なし", 1000000, 0, 9999, 0, false},
		{"フレーム上限の直前", 99, 100, 0, 0, false},
		{"フレーム上限ちょうど", 100, 100, 0, 0, true},
		{"フレーム上限超過", 101, 100, 0, 0, true},
		{"時間上限の直前", 0, 0, 2.9, 3.0, false},
		{"時間上限ちょうど", 0, 0, 3.0, 3.0, true},
		{"時間上限超過", 0, 0, 3.5, 3.0, true},
		{"両方設定で時間が先", 50, 100, 3.0, 3.0, true},
		{"両方設定でフレームが先", 100, 100, 1.0, 60.0, true},
		{"両方設定で未到達", 50, 100, 1.0, 60.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reached(tt.count, tt.maxCount, tt.elapsed, tt.maxSeconds)
			if got != tt.expected {
				t.Errorf("Reached(%d, %d, %v, %v) = %v, expected %v",
					tt.count, tt.maxCount, tt.elapsed, tt.maxSeconds, got, tt.expected)
			}
		})
	}
}
