package camera

import "fmt"

// Frame は取得済みの1枚のモノクロフレーム
// Pixは行優先の連続バッファで、16ビットはリトルエンディアンで格納する
// 取得後は読み取り専用として扱う
type Frame struct {
	Width    int
	Height   int
	BitDepth int // 8 または 16
	Pix      []byte
}

// BytesPerPixel は1画素のバイト数を返す
func (f *Frame) BytesPerPixel() int {
	if f.BitDepth == 16 {
		return 2
	}
	return 1
}

// Validate はバッファ長の不変条件を検証する
func (f *Frame) Validate() error {
	if f.Width < 1 || f.Height < 1 {
		return fmt.Errorf("フレーム寸法が不正: %dx%d", f.Width, f.Height)
	}
	if f.BitDepth != 8 && f.BitDepth != 16 {
		return fmt.Errorf("ビット深度が不正: %d", f.BitDepth)
	}
	want := f.Width * f.Height * f.BytesPerPixel()
	if len(f.Pix) != want {
		return fmt.Errorf("バッファ長が不正: %d (期待値 %d)", len(f.Pix), want)
	}
	return nil
}

// Gray8 は8ビットの画素列を返す
// 16ビットフレームは上位バイト（>>8）で縮約する
// 8ビットフレームは内部バッファをそのまま返す
func (f *Frame) Gray8() []byte {
	if f.BitDepth != 16 {
		return f.Pix
	}
	out := make([]byte, f.Width*f.Height)
	for i := range out {
		out[i] = f.Pix[i*2+1]
	}
	return out
}

// Clone はフレームの独立したコピーを返す
func (f *Frame) Clone() *Frame {
	c := *f
	c.Pix = append([]byte(nil), f.Pix...)
	return &c
}
