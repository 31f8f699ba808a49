package record

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"rensha/internal/camera"
)

// DefaultDumpQueueSize はダンプワーカーの既定キュー容量
const DefaultDumpQueueSize = 10000

// rawFilePattern は連番rawファイルの名前形式
const rawFilePattern = "%08d.raw"

// DumpConfig はDumpWorkerの設定
type DumpConfig struct {
	Dir       string // 連番rawファイルを置くセッションディレクトリ
	OutPath   string // 後段エンコードの出力ファイル (.avi)
	Width     int
	Height    int
	FrameRate float64
	QueueSize int         // 0は既定値
	KeepRaw   bool        // エンコード成功後もrawファイルを残す
	Logger    *log.Logger // nilは標準ロガー
}

// numberedFrame は採番済みの書き込み待ちフレーム
type numberedFrame struct {
	seq int64
	pix []byte
}

// DumpWorker はフレームを連番rawファイルへ書き出し、停止時にまとめてエンコードする
// キュー満杯時は最も古いキュー内フレームを捨てて受け入れる
// 捨てられた番号は欠番となり、エンコード時に直前フレームで補完される
type DumpWorker struct {
	cfg    DumpConfig
	logger *log.Logger

	queue     chan numberedFrame
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	newSession func() (encoderSession, error)

	mu      sync.Mutex
	started bool
	stopped bool

	seq      atomic.Int64 // 次に採番する番号。進めるのは取得ループのゴルーチンだけ
	files    int64
	dropped  int64
	writeErr atomic.Value
}

// NewDumpWorker は新しいDumpWorkerを作成する
func NewDumpWorker(cfg DumpConfig) *DumpWorker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDumpQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &DumpWorker{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan numberedFrame, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	w.newSession = func() (encoderSession, error) {
		return newFFmpegSession(rawArgs(cfg.Width, cfg.Height, cfg.FrameRate, cfg.OutPath))
	}
	return w
}

// Start はセッションディレクトリを作成してバックグラウンド書き込みを開始する
func (w *DumpWorker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("ダンプワーカーは開始済みです")
	}

	if err := os.MkdirAll(w.cfg.Dir, 0755); err != nil {
		w.closeOnce.Do(func() { close(w.done) })
		return fmt.Errorf("ダンプディレクトリの作成に失敗: %w", err)
	}

	w.started = true
	w.wg.Add(1)
	go w.run()

	w.logger.Printf("ダンプ録画を開始: %s", w.cfg.Dir)
	return nil
}

// Write はフレームを採番してキューに積む
// 満杯時は最古のフレームを捨ててから積むため、受け入れた側はtrueになる
func (w *DumpWorker) Write(f *camera.Frame) bool {
	select {
	case <-w.done:
		return false
	default:
	}

	seq := w.seq.Load()
	if !w.enqueue(numberedFrame{seq: seq, pix: f.Gray8()}) {
		return false
	}
	w.seq.Store(seq + 1)
	return true
}

// enqueue は満杯時に最古を捨てる方針でキューに積む
func (w *DumpWorker) enqueue(item numberedFrame) bool {
	select {
	case w.queue <- item:
		return true
	default:
	}

	// 最古を1つ捨てて空きを作る
	select {
	case old := <-w.queue:
		n := atomic.AddInt64(&w.dropped, 1)
		if n == 1 || n%100 == 0 {
			w.logger.Printf("ダンプキューが満杯のためフレーム%dを破棄 (累計%d)", old.seq, n)
		}
	default:
	}

	select {
	case w.queue <- item:
		return true
	default:
		return false
	}
}

// run はキューのフレームを連番rawファイルへ書き続ける
func (w *DumpWorker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			for {
				select {
				case item := <-w.queue:
					w.writeFile(item)
				default:
					return
				}
			}
		case item := <-w.queue:
			w.writeFile(item)
		}
	}
}

// writeFile は1フレームをrawファイルとして保存する
func (w *DumpWorker) writeFile(item numberedFrame) {
	path := filepath.Join(w.cfg.Dir, fmt.Sprintf(rawFilePattern, item.seq))
	if err := os.WriteFile(path, item.pix, 0644); err != nil {
		if w.writeErr.Load() == nil {
			w.writeErr.Store(fmt.Errorf("rawファイルの書き込みに失敗: %w", err))
		}
		w.logger.Printf("rawファイルの書き込みに失敗 (%s): %v", path, err)
		return
	}
	atomic.AddInt64(&w.files, 1)
}

// Stop はキューをドレインし、欠番を補完しながら動画へエンコードする
// エンコード失敗時はrawファイルを残したままエラーを返す
func (w *DumpWorker) Stop() (Result, error) {
	w.mu.Lock()
	if !w.started || w.stopped {
		w.mu.Unlock()
		return Result{}, fmt.Errorf("ダンプワーカーは動作していません")
	}
	w.stopped = true
	w.mu.Unlock()

	depth := len(w.queue)
	w.closeOnce.Do(func() { close(w.done) })

	if !waitTimeout(&w.wg, joinTimeout(depth, 10*time.Millisecond)) {
		w.logger.Printf("ダンプワーカーのドレインがタイムアウトしました (残り%d)", len(w.queue))
	}

	total := w.seq.Load()
	if total == 0 {
		_ = os.Remove(w.cfg.Dir)
		w.logger.Printf("フレームがないためエンコードをスキップします")
		return Result{Count: 0}, nil
	}

	w.logger.Printf("rawファイル%d件を%dフレームの動画へエンコードします", atomic.LoadInt64(&w.files), total)
	if err := w.encodeDump(total); err != nil {
		w.logger.Printf("ダンプのエンコードに失敗 (rawファイルを保持: %s): %v", w.cfg.Dir, err)
		return Result{Path: w.cfg.Dir, Count: total}, err
	}

	if !w.cfg.KeepRaw {
		if err := os.RemoveAll(w.cfg.Dir); err != nil {
			w.logger.Printf("rawディレクトリの削除に失敗: %v", err)
		}
	}

	if n := atomic.LoadInt64(&w.dropped); n > 0 {
		w.logger.Printf("ダンプ録画を終了: %dフレーム (欠番%d) -> %s", total, n, w.cfg.OutPath)
	} else {
		w.logger.Printf("ダンプ録画を終了: %dフレーム -> %s", total, w.cfg.OutPath)
	}

	result := Result{Path: w.cfg.OutPath, Count: total}
	if err, _ := w.writeErr.Load().(error); err != nil {
		return result, err
	}
	return result, nil
}

// encodeDump は連番rawファイルをエンコーダへ流し込む
func (w *DumpWorker) encodeDump(total int64) error {
	session, err := w.newSession()
	if err != nil {
		return err
	}

	frameSize := w.cfg.Width * w.cfg.Height
	assembleErr := assembleRaw(w.cfg.Dir, total, frameSize, session.WriteFrame)

	finishErr := session.Finish(joinTimeout(int(total), 10*time.Millisecond))
	if assembleErr != nil {
		return assembleErr
	}
	return finishErr
}

// assembleRaw は0からtotal-1までの連番rawファイルを順に読み出してwriteへ渡す
// 欠番や長さ不正のファイルは直前の正常フレーム（先頭なら黒フレーム）で補完する
func assembleRaw(dir string, total int64, frameSize int, write func(pix []byte) error) error {
	last := make([]byte, frameSize) // 正常フレームが来るまでは黒
	for i := int64(0); i < total; i++ {
		path := filepath.Join(dir, fmt.Sprintf(rawFilePattern, i))
		data, err := os.ReadFile(path)
		if err == nil && len(data) == frameSize {
			last = data
		}
		if err := write(last); err != nil {
			return fmt.Errorf("フレーム%dの供給に失敗: %w", i, err)
		}
	}
	return nil
}
