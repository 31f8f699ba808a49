package record

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"rensha/internal/camera"
)

// DefaultStreamQueueSize はストリーミングワーカーの既定キュー容量
const DefaultStreamQueueSize = 1000

// StreamConfig はStreamingWorkerの設定
type StreamConfig struct {
	Path      string  // 出力ファイル (.mp4)
	Width     int
	Height    int
	FrameRate float64
	QueueSize int         // 0は既定値
	Logger    *log.Logger // nilは標準ロガー
}

// StreamingWorker はフレームをffmpegのstdinへ流し込みながらH.264で録画する
// キュー満杯時は新しいフレームを破棄する（時間方向の欠落を許容する）
type StreamingWorker struct {
	cfg    StreamConfig
	logger *log.Logger

	queue     chan *camera.Frame
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	newSession func() (encoderSession, error)
	session    encoderSession

	mu      sync.Mutex
	started bool
	stopped bool

	written  int64
	dropped  int64
	writeErr atomic.Value // 最初のエンコード書き込みエラー
}

// NewStreamingWorker は新しいStreamingWorkerを作成する
func NewStreamingWorker(cfg StreamConfig) *StreamingWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultStreamQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &StreamingWorker{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan *camera.Frame, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	w.newSession = func() (encoderSession, error) {
		return newFFmpegSession(streamArgs(cfg.Width, cfg.Height, cfg.FrameRate, cfg.Path))
	}
	return w
}

// Start はエンコーダを起動してバックグラウンド書き込みを開始する
func (w *StreamingWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("ストリーミングワーカーは開始済みです")
	}

	session, err := w.newSession()
	if err != nil {
		// 部分状態を残さない。以後のWriteは常にfalse
		w.closeOnce.Do(func() { close(w.done) })
		return fmt.Errorf("ストリーミング録画の開始に失敗: %w", err)
	}

	w.session = session
	w.started = true

	w.wg.Add(1)
	go w.run()

	w.logger.Printf("ストリーミング録画を開始: %s (%dx%d @ %.3g fps)", w.cfg.Path, w.cfg.Width, w.cfg.Height, w.cfg.FrameRate)
	return nil
}

// Write はフレームをキューに積む。満杯時はこのフレームを破棄してfalseを返す
func (w *StreamingWorker) Write(f *camera.Frame) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	select {
	case w.queue <- f:
		return true
	default:
		n := atomic.AddInt64(&w.dropped, 1)
		if n == 1 || n%100 == 0 {
			w.logger.Printf("ストリーミングキューが満杯のためフレームを破棄 (累計%d)", n)
		}
		return false
	}
}

// run はキューのフレームをエンコーダへ書き込み続ける
func (w *StreamingWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			// 残りをドレインしてから終了する
			for {
				select {
				case f := <-w.queue:
					w.encode(f)
				default:
					return
				}
			}
		case f := <-w.queue:
			w.encode(f)
		}
	}
}

// encode は1フレームをエンコーダへ渡す。失敗後は以後のフレームを読み捨てる
func (w *StreamingWorker) encode(f *camera.Frame) {
	if w.writeErr.Load() != nil {
		return
	}
	if err := w.session.WriteFrame(f.Gray8()); err != nil {
		w.writeErr.Store(err)
		w.logger.Printf("エンコーダへの書き込みに失敗: %v", err)
		return
	}
	atomic.AddInt64(&w.written, 1)
}

// Stop はキューをドレインし、エンコーダを終了させて成果物を返す
func (w *StreamingWorker) Stop() (Result, error) {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return Result{}, fmt.Errorf("ストリーミングワーカーは動作していません")
	}
	w.stopped = true
	w.mu.Unlock()

	depth := len(w.queue)
	w.closeOnce.Do(func() { close(w.done) })

	if !waitTimeout(&w.wg, joinTimeout(depth, 20*time.Millisecond)) {
		w.logger.Printf("ストリーミングワーカーのドレインがタイムアウトしました (残り%d)", len(w.queue))
	}

	finishErr := w.session.Finish(5 * time.Second)

	result := Result{Path: w.cfg.Path, Count: atomic.LoadInt64(&w.written)}
	if dropped := atomic.LoadInt64(&w.dropped); dropped > 0 {
		w.logger.Printf("ストリーミング録画を終了: %dフレーム書き込み、%dフレーム破棄", result.Count, dropped)
	} else {
		w.logger.Printf("ストリーミング録画を終了: %dフレーム書き込み", result.Count)
	}

	if err, _ := w.writeErr.Load().(error); err != nil {
		return result, err
	}
	return result, finishErr
}
