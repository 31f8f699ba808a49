package waterfall

import (
	"bytes"
	"image/png"
	"testing"
)

// TestRowsToGray は行データがグレースケール画像に変換されることをテストする
func TestRowsToGray(t *testing.T) {
	rows := [][]byte{
		{0, 128},
		{255, 1},
	}
	img := RowsToGray(rows, 2)

	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("Unexpected bounds: %v", img.Bounds())
	}
	if img.GrayAt(1, 0).Y != 128 {
		t.Errorf("Expected 128 at (1,0), got %d", img.GrayAt(1, 0).Y)
	}
	if img.GrayAt(0, 1).Y != 255 {
		t.Errorf("Expected 255 at (0,1), got %d", img.GrayAt(0, 1).Y)
	}
}

// TestWritePNG はPNG出力がデコード可能で画素値を保持することをテストする
func TestWritePNG(t *testing.T) {
	rows := [][]byte{
		{10, 20, 30},
		{40, 50, 60},
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, rows, 3); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if decoded.Bounds().Dx() != 3 || decoded.Bounds().Dy() != 2 {
		t.Fatalf("Unexpected bounds: %v", decoded.Bounds())
	}

	r, _, _, _ := decoded.At(2, 1).RGBA()
	if byte(r>>8) != 60 {
		t.Errorf("Expected 60 at (2,1), got %d", r>>8)
	}
}

// TestWritePNGInvalidWidth は不正な幅でエラーになることをテストする
func TestWritePNGInvalidWidth(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, nil, 0); err == nil {
		t.Error("Expected error for zero width, got nil")
	}
}
