package waterfall

import "sort"

// MedianColumns は高さHの8ビットフレームを列ごとの中央値で1行に縮約する
// pixは行優先のwidth*heightバイト。H==1はコピーのみの高速パス
// 偶数Hの中央値は中央2値の平均（切り捨て）
func MedianColumns(pix []byte, width, height int) []byte {
	line := make([]byte, width)
	if width == 0 || height == 0 {
		return line
	}

	if height == 1 {
		copy(line, pix[:width])
		return line
	}

	column := make([]byte, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			column[y] = pix[y*width+x]
		}
		sort.Slice(column, func(i, j int) bool { return column[i] < column[j] })
		if height%2 == 1 {
			line[x] = column[height/2]
		} else {
			a := int(column[height/2-1])
			b := int(column[height/2])
			line[x] = byte((a + b) / 2)
		}
	}
	return line
}
