package waterfall

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"math"
	"os"
)

// マジックナンバー（ASCII）
const (
	MagicKMG = "KMG1"   // 旧形式のカイモグラフファイル
	MagicWTF = "WTF1"   // ウォーターフォールファイル
	MagicDSR = "WTFDSR" // デシア角付きウォーターフォールファイル
)

// Header は.wtf/.kmgファイルのヘッダー情報
type Header struct {
	Magic string  // MagicKMG / MagicWTF / MagicDSR のいずれか
	Width int     // 1行のバイト数（u16リトルエンディアンで格納）
	Angle float64 // デシア角（度）。DSR変種のみ有効
}

// Image はデコード済みのウォーターフォールデータ
type Image struct {
	Header Header
	Rows   [][]byte // 各行はHeader.Widthバイト
}

// Lines は行数を返す
func (im *Image) Lines() int {
	return len(im.Rows)
}

// QuantizeAngle はデシア角（度）を1バイトに量子化する
// 範囲は[0°, 90°]で、範囲外はクランプする
func QuantizeAngle(deg float64) byte {
	if deg < 0 {
		deg = 0
	}
	if deg > 90 {
		deg = 90
	}
	return byte(deg / 90 * 255)
}

// DequantizeAngle は量子化されたデシア角を度に戻す
func DequantizeAngle(b byte) float64 {
	return float64(b) / 255 * 90
}

// WriteHeader はヘッダーをwに書き込む
// ファイルオープン時に一度だけ呼ぶ
func WriteHeader(w io.Writer, h Header) error {
	switch h.Magic {
	case MagicKMG, MagicWTF, MagicDSR:
	default:
		return fmt.Errorf("マジックナンバーが不正: %q", h.Magic)
	}
	if h.Width < 1 || h.Width > math.MaxUint16 {
		return fmt.Errorf("行幅が範囲外: %d", h.Width)
	}

	buf := make([]byte, 0, len(h.Magic)+3)
	buf = append(buf, h.Magic...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Width))
	if h.Magic == MagicDSR {
		buf = append(buf, QuantizeAngle(h.Angle))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("ヘッダーの書き込みに失敗: %w", err)
	}
	return nil
}

// ReadHeader はrからヘッダーを読み取る
func ReadHeader(r io.Reader) (Header, error) {
	var h Header

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, fmt.Errorf("マジックナンバーの読み取りに失敗: %w", err)
	}

	switch string(magic) {
	case MagicKMG:
		h.Magic = MagicKMG
	case MagicWTF:
		h.Magic = MagicWTF
	case "WTFD":
		// 6バイトマジック"WTFDSR"の残りを読む
		rest := make([]byte, 2)
		if _, err := io.ReadFull(r, rest); err != nil {
			return h, fmt.Errorf("マジックナンバーの読み取りに失敗: %w", err)
		}
		if string(rest) != "SR" {
			return h, fmt.Errorf("マジックナンバーが不正: %q", string(magic)+string(rest))
		}
		h.Magic = MagicDSR
	default:
		return h, fmt.Errorf("マジックナンバーが不正: %q", string(magic))
	}

	var width uint16
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return h, fmt.Errorf("行幅の読み取りに失敗: %w", err)
	}
	if width == 0 {
		return h, fmt.Errorf("行幅が不正: 0")
	}
	h.Width = int(width)

	if h.Magic == MagicDSR {
		angle := make([]byte, 1)
		if _, err := io.ReadFull(r, angle); err != nil {
			return h, fmt.Errorf("デシア角の読み取りに失敗: %w", err)
		}
		h.Angle = DequantizeAngle(angle[0])
	}

	return h, nil
}

// Decode はヘッダーとペイロード全体を読み取る
// 行幅で割り切れないペイロードは警告を出して切り詰める
func Decode(r io.Reader) (*Image, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ペイロードの読み取りに失敗: %w", err)
	}

	lines := len(payload) / h.Width
	if rem := len(payload) % h.Width; rem != 0 {
		log.Printf("警告: ペイロードが行幅%dで割り切れません (余り%dバイトを無視します)", h.Width, rem)
	}

	rows := make([][]byte, lines)
	for i := 0; i < lines; i++ {
		rows[i] = payload[i*h.Width : (i+1)*h.Width]
	}

	return &Image{Header: h, Rows: rows}, nil
}

// DecodeFile はファイルを開いてデコードする
func DecodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルのオープンに失敗: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return Decode(f)
}
