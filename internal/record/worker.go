package record

import (
	"fmt"
	"sync"
	"time"

	"rensha/internal/camera"
)

// Result は録画の成果物
type Result struct {
	Path  string `json:"path"`  // 出力ファイルのパス
	Count int64  `json:"count"` // 書き込んだフレーム/ライン数
}

// Worker は録画ワーカーの共通契約
// 取得ループは1つのWorkerだけをアクティブに保持し、Writeだけを高頻度に呼ぶ
type Worker interface {
	// Start はリソースを確保してバックグラウンド処理を開始する
	// 失敗時は部分状態（ゴルーチン・プロセス・ファイル）を残さない
	Start() error

	// Write はフレームを1枚引き渡す。必ず有界時間で返る
	// キュー満杯でフレームを破棄した場合はfalseを返し、呼び出し側は数えない
	Write(f *camera.Frame) bool

	// Stop はキューをドレインして成果物を確定する
	Stop() (Result, error)
}

// TimestampName は録画ファイル名を生成する (例: vid_20260822-143055.mp4)
func TimestampName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s", prefix, time.Now().Format("20060102-150405"), ext)
}

// joinTimeout はキュー深さに比例した合流タイムアウトを計算する
func joinTimeout(depth int, perItem time.Duration) time.Duration {
	return 2*time.Second + time.Duration(depth)*perItem
}

// waitTimeout はWaitGroupの完了をタイムアウト付きで待つ
// 完了したらtrueを返す
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
