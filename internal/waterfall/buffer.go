package waterfall

import (
	"log"
	"sync"
)

// Buffer はライブ表示用のライン蓄積リングバッファ
// 固定行数を保持し、満杯になると最も古い行を上書きする
// 取得ループとHTTPハンドラーの両方から使うため排他制御を内蔵する
type Buffer struct {
	mu         sync.RWMutex
	width      int
	lines      int
	rows       [][]byte
	cursor     int // 次に書き込む行位置。常に[0, lines)
	background byte
}

// NewBuffer は背景値で初期化済みのリングバッファを作成する
func NewBuffer(lines, width int, bg byte) *Buffer {
	b := &Buffer{
		width:      width,
		lines:      lines,
		background: bg,
	}
	b.rows = b.newRows(width)
	return b
}

func (b *Buffer) newRows(width int) [][]byte {
	rows := make([][]byte, b.lines)
	for i := range rows {
		row := make([]byte, width)
		for j := range row {
			row[j] = b.background
		}
		rows[i] = row
	}
	return rows
}

// Push はラインを1行追加する
// 幅が現在のバッファと一致しない場合はエラーではなく、
// 新しい幅でバッファを作り直してから追加する（回復可能な状態）
func (b *Buffer) Push(line []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(line) != b.width {
		log.Printf("ウォーターフォールバッファを再初期化: 幅 %d -> %d", b.width, len(line))
		b.width = len(line)
		b.rows = b.newRows(b.width)
		b.cursor = 0
	}

	copy(b.rows[b.cursor], line)
	b.cursor = (b.cursor + 1) % b.lines
}

// Snapshot は古い順に並べた全行のコピーを返す
func (b *Buffer) Snapshot() [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([][]byte, 0, b.lines)
	for i := b.cursor; i < b.lines; i++ {
		out = append(out, append([]byte(nil), b.rows[i]...))
	}
	for i := 0; i < b.cursor; i++ {
		out = append(out, append([]byte(nil), b.rows[i]...))
	}
	return out
}

// Width は現在の行幅を返す
func (b *Buffer) Width() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.width
}

// Lines は保持行数を返す
func (b *Buffer) Lines() int {
	return b.lines
}
