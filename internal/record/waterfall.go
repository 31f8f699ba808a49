package record

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"rensha/internal/camera"
	"rensha/internal/waterfall"
)

// DefaultWaterfallQueueSize はウォーターフォールワーカーの既定キュー容量
const DefaultWaterfallQueueSize = 1000

// DefaultBatchLines は1回のフラッシュでまとめて書き込むライン数の既定値
const DefaultBatchLines = 1000

// DefaultFlushInterval はバッチが満たない場合の定期フラッシュ間隔
const DefaultFlushInterval = time.Second

// WaterfallConfig はWaterfallWorkerの設定
type WaterfallConfig struct {
	Path          string  // 出力ファイル (.wtf / .kmg)
	Width         int     // ラインの幅。フレーム幅と一致しない場合は破棄
	DeshearAngle  float64 // 0以外ならDSRヘッダに量子化して記録
	QueueSize     int     // 0は既定値
	BatchLines    int     // 0は既定値
	FlushInterval time.Duration // 0は既定値
	Logger        *log.Logger   // nilは標準ロガー
}

// WaterfallWorker はフレームを1ラインに縮約してバッチ書き込みする
// キュー満杯時は入ってきたラインを破棄する（Writeがfalseを返す）ため、
// 受理されたライン数とファイル上の行数は一致する
type WaterfallWorker struct {
	cfg    WaterfallConfig
	logger *log.Logger

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	file *os.File

	mu      sync.Mutex
	started bool
	stopped bool

	written    int64
	dropped    int64
	mismatched int64
	writeErr   atomic.Value
}

// NewWaterfallWorker は新しいWaterfallWorkerを作成する
func NewWaterfallWorker(cfg WaterfallConfig) *WaterfallWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultWaterfallQueueSize
	}
	if cfg.BatchLines <= 0 {
		cfg.BatchLines = DefaultBatchLines
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &WaterfallWorker{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan []byte, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Start は出力ファイルを開いてヘッダを書き、バックグラウンド書き込みを開始する
func (w *WaterfallWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("ウォーターフォールワーカーは開始済みです")
	}

	header := waterfall.Header{Magic: waterfall.MagicWTF, Width: w.cfg.Width}
	if w.cfg.DeshearAngle != 0 {
		header.Magic = waterfall.MagicDSR
		header.Angle = w.cfg.DeshearAngle
	}

	file, err := os.Create(w.cfg.Path)
	if err != nil {
		w.closeOnce.Do(func() { close(w.done) })
		return fmt.Errorf("ウォーターフォールファイルの作成に失敗: %w", err)
	}
	if err := waterfall.WriteHeader(file, header); err != nil {
		file.Close()
		os.Remove(w.cfg.Path)
		w.closeOnce.Do(func() { close(w.done) })
		return fmt.Errorf("ヘッダの書き込みに失敗: %w", err)
	}

	w.file = file
	w.started = true
	w.wg.Add(1)
	go w.run()

	w.logger.Printf("ウォーターフォール録画を開始: %s (幅%d)", w.cfg.Path, w.cfg.Width)
	return nil
}

// Write はフレームを1ラインに縮約してキューに積む
// 幅の不一致およびキュー満杯時はラインを破棄してfalseを返す
func (w *WaterfallWorker) Write(f *camera.Frame) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	if f.Width != w.cfg.Width {
		n := atomic.AddInt64(&w.mismatched, 1)
		if n == 1 || n%100 == 0 {
			w.logger.Printf("ライン幅が不一致のため破棄: %d != %d (累計%d)", f.Width, w.cfg.Width, n)
		}
		return false
	}

	line := waterfall.MedianColumns(f.Gray8(), f.Width, f.Height)

	select {
	case w.queue <- line:
		return true
	default:
		n := atomic.AddInt64(&w.dropped, 1)
		if n == 1 || n%100 == 0 {
			w.logger.Printf("ウォーターフォールキューが満杯のためラインを破棄 (累計%d)", n)
		}
		return false
	}
}

// run はラインをバッチに溜め、満杯または一定間隔でファイルへフラッシュする
func (w *WaterfallWorker) run() {
	defer w.wg.Done()
	defer w.file.Close()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	block := make([]byte, 0, w.cfg.BatchLines*w.cfg.Width)
	batched := 0

	for {
		select {
		case <-w.done:
			for {
				select {
				case line := <-w.queue:
					block = append(block, line...)
					batched++
				default:
					w.flush(block, batched)
					return
				}
			}
		case line := <-w.queue:
			block = append(block, line...)
			batched++
			if batched >= w.cfg.BatchLines {
				w.flush(block, batched)
				block = block[:0]
				batched = 0
			}
		case <-ticker.C:
			w.flush(block, batched)
			block = block[:0]
			batched = 0
		}
	}
}

// flush はバッチをファイルへ書き込む
func (w *WaterfallWorker) flush(block []byte, lines int) {
	if lines == 0 {
		return
	}
	if _, err := w.file.Write(block); err != nil {
		if w.writeErr.Load() == nil {
			w.writeErr.Store(fmt.Errorf("ラインの書き込みに失敗: %w", err))
		}
		w.logger.Printf("ラインの書き込みに失敗 (%dライン): %v", lines, err)
		return
	}
	atomic.AddInt64(&w.written, int64(lines))
}

// Stop はキューをドレインして残りをフラッシュし、ファイルを閉じる
func (w *WaterfallWorker) Stop() (Result, error) {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return Result{}, fmt.Errorf("ウォーターフォールワーカーは動作していません")
	}
	w.stopped = true
	w.mu.Unlock()

	depth := len(w.queue)
	w.closeOnce.Do(func() { close(w.done) })

	if !waitTimeout(&w.wg, joinTimeout(depth, 5*time.Millisecond)) {
		w.logger.Printf("ウォーターフォールワーカーのドレインがタイムアウトしました (残り%d)", len(w.queue))
	}

	lines := atomic.LoadInt64(&w.written)
	if n := atomic.LoadInt64(&w.dropped); n > 0 {
		w.logger.Printf("ウォーターフォール録画を終了: %dライン (破棄%d) -> %s", lines, n, w.cfg.Path)
	} else {
		w.logger.Printf("ウォーターフォール録画を終了: %dライン -> %s", lines, w.cfg.Path)
	}

	result := Result{Path: w.cfg.Path, Count: lines}
	if err, _ := w.writeErr.Load().(error); err != nil {
		return result, err
	}
	return result, nil
}
