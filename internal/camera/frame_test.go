package camera

import (
	"bytes"
	"testing"
)

// TestFrameValidate はバッファ長の不変条件をテストする
func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{
			name:  "正常な8ビットフレーム",
			frame: Frame{Width: 4, Height: 2, BitDepth: 8, Pix: make([]byte, 8)},
		},
		{
			name:  "正常な16ビットフレーム",
			frame: Frame{Width: 4, Height: 2, BitDepth: 16, Pix: make([]byte, 16)},
		},
		{
			name:    "バッファ長の不一致",
			frame:   Frame{Width: 4, Height: 2, BitDepth: 8, Pix: make([]byte, 7)},
			wantErr: true,
		},
		{
			name:    "不正なビット深度",
			frame:   Frame{Width: 4, Height: 2, BitDepth: 12, Pix: make([]byte, 8)},
			wantErr: true,
		},
		{
			name:    "不正な寸法",
			frame:   Frame{Width: 0, Height: 2, BitDepth: 8, Pix: nil},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestFrameGray8 は16ビットから8ビットへの縮約が上位バイトを取ることをテストする
func TestFrameGray8(t *testing.T) {
	// リトルエンディアンで 0x1234, 0xFF00, 0x00FF
	f := &Frame{
		Width:    3,
		Height:   1,
		BitDepth: 16,
		Pix:      []byte{0x34, 0x12, 0x00, 0xFF, 0xFF, 0x00},
	}

	got := f.Gray8()
	want := []byte{0x12, 0xFF, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

// TestFrameGray8Passthrough は8ビットフレームが変換なしで返ることをテストする
func TestFrameGray8Passthrough(t *testing.T) {
	pix := []byte{1, 2, 3, 4}
	f := &Frame{Width: 2, Height: 2, BitDepth: 8, Pix: pix}

	got := f.Gray8()
	if &got[0] != &pix[0] {
		t.Error("Expected 8-bit Gray8 to return the backing buffer")
	}
}

// TestFrameClone はクローンが元のフレームと独立していることをテストする
func TestFrameClone(t *testing.T) {
	f := &Frame{Width: 2, Height: 1, BitDepth: 8, Pix: []byte{10, 20}}
	c := f.Clone()

	c.Pix[0] = 99
	if f.Pix[0] != 10 {
		t.Error("Clone must not share the pixel buffer")
	}
	if c.Width != f.Width || c.Height != f.Height || c.BitDepth != f.BitDepth {
		t.Error("Clone must copy dimensions")
	}
}
