package waterfall

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// RowsToGray は行の並びをグレースケール画像に変換する
// widthより短い行は背景(黒)のまま残る
func RowsToGray(rows [][]byte, width int) *image.Gray {
	height := len(rows)
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y, row := range rows {
		n := len(row)
		if n > width {
			n = width
		}
		copy(img.Pix[y*img.Stride:y*img.Stride+n], row[:n])
	}
	return img
}

// WritePNG は行の並びをPNGとしてwに書き出す
func WritePNG(w io.Writer, rows [][]byte, width int) error {
	if width < 1 {
		return fmt.Errorf("行幅が不正: %d", width)
	}
	if err := png.Encode(w, RowsToGray(rows, width)); err != nil {
		return fmt.Errorf("PNGのエンコードに失敗: %w", err)
	}
	return nil
}
