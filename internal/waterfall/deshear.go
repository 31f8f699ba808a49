package waterfall

import "math"

// DefaultBackground は範囲外参照を埋める既定の背景値
const DefaultBackground byte = 255

// ShiftRowLinear は1行を水平方向にshiftピクセルだけサブピクセルシフトする
// 出力位置xは入力位置x-shiftを線形補間で参照する
// 参照位置が[0, W-1]の外になる画素は背景値bgで埋める
func ShiftRowLinear(row []byte, shift float64, bg byte) []byte {
	w := len(row)
	out := make([]byte, w)
	if w == 0 {
		return out
	}

	for x := 0; x < w; x++ {
		src := float64(x) - shift
		if src < 0 || src > float64(w-1) {
			out[x] = bg
			continue
		}
		i0 := int(math.Floor(src))
		if i0 >= w-1 {
			out[x] = row[w-1]
			continue
		}
		frac := src - float64(i0)
		v := float64(row[i0])*(1-frac) + float64(row[i0+1])*frac
		out[x] = byte(v + 0.5)
	}
	return out
}

// ShiftPerLine は1行あたりの水平シフト量（ピクセル）を計算する
// angleDegはデシア角（度）、dyUmは行間の物理距離、pixelUmは画素ピッチ
func ShiftPerLine(angleDeg, dyUm, pixelUm float64) float64 {
	return math.Tan(angleDeg*math.Pi/180) * dyUm / pixelUm
}

// Deshear は各行に行番号比例のシフトを適用してスキューを補正する
// 角度0は恒等変換になる。純粋関数で入力を変更しない
func Deshear(rows [][]byte, angleDeg, dyUm, pixelUm float64, bg byte) [][]byte {
	perLine := ShiftPerLine(angleDeg, dyUm, pixelUm)
	out := make([][]byte, len(rows))
	for i, row := range rows {
		out[i] = ShiftRowLinear(row, perLine*float64(i), bg)
	}
	return out
}
