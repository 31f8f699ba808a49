package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"rensha/internal/camera"
	"rensha/internal/record"
)

var (
	// ErrLoopNotRunning は取得ループ停止中の録画開始で返る
	ErrLoopNotRunning = errors.New("取得ループが動作していません")
	// ErrRecordingActive は二重の録画開始で返る
	ErrRecordingActive = errors.New("録画は既に実行中です")
	// ErrNoRecording は録画していない状態での停止要求で返る
	ErrNoRecording = errors.New("録画は実行されていません")
)

const (
	// grabTimeout はカメラからの1回の取得待ち時間
	grabTimeout = 5 * time.Millisecond
	// missSleep はフレームが取れなかったときの待機時間
	missSleep = 5 * time.Millisecond
	// statsInterval は統計スナップショットの配信間隔
	statsInterval = 200 * time.Millisecond
	// limitCheckEvery は経過時間上限を評価する書き込み間隔
	limitCheckEvery = 100
)

// Stats は取得ループの統計スナップショット
type Stats struct {
	Recording bool    `json:"recording"`
	Frames    int64   `json:"frames"`
	Elapsed   float64 `json:"elapsed"`
	FPS       float64 `json:"fps"`
}

// PreviewSink は取得ループからのイベントを受け取る
// OnFrameは取得ループを長時間ブロックしてはならない
type PreviewSink interface {
	OnFrame(f *camera.Frame)
	OnStats(stats Stats)
	OnAutoStop()
}

// nopSink はシンク未設定時の受け皿
type nopSink struct{}

func (nopSink) OnFrame(*camera.Frame) {}
func (nopSink) OnStats(Stats)         {}
func (nopSink) OnAutoStop()           {}

// Loop はカメラソースを専有する取得ループ
type Loop struct {
	source camera.Source
	sink   PreviewSink
	logger *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	session *session

	previewOff atomic.Bool
}

// NewLoop は新しい取得ループを作成する
func NewLoop(source camera.Source, sink PreviewSink, logger *log.Logger) *Loop {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		source: source,
		sink:   sink,
		logger: logger,
	}
}

// Start はカメラソースを起動して取得ループを開始する
func (l *Loop) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("取得ループは開始済みです")
	}
	stopCh := make(chan struct{})
	l.stopCh = stopCh
	l.running = true
	l.mu.Unlock()

	if err := l.source.Start(ctx); err != nil {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return fmt.Errorf("カメラソースの起動に失敗: %w", err)
	}

	l.wg.Add(1)
	go l.run(stopCh)

	go func() {
		select {
		case <-ctx.Done():
			l.Stop()
		case <-stopCh:
		}
	}()

	l.logger.Printf("取得ループを開始しました")
	return nil
}

// Stop は録画を終了させてから取得ループを停止する。何度呼んでも安全
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	stopCh := l.stopCh
	l.mu.Unlock()

	if result, err := l.StopRecording(); err == nil {
		l.logger.Printf("停止前に録画を終了: %s (%d件)", result.Path, result.Count)
	}

	close(stopCh)
	l.wg.Wait()

	if err := l.source.Stop(); err != nil {
		l.logger.Printf("カメラソースの停止に失敗: %v", err)
	}
	l.logger.Printf("取得ループを停止しました")
}

// Running は取得ループが動作中かを返す
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// StartRecording はワーカーを起動して録画セッションを開始し、セッションIDを返す
// 実行中のセッションがある場合はエラー。ワーカーの起動失敗時はセッションを作らない
func (l *Loop) StartRecording(worker record.Worker, opts SessionOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return "", ErrLoopNotRunning
	}
	if l.session != nil {
		return "", fmt.Errorf("%w (ID: %s)", ErrRecordingActive, l.session.id)
	}

	if err := worker.Start(); err != nil {
		return "", fmt.Errorf("録画ワーカーの起動に失敗: %w", err)
	}

	s := newSession(worker, opts)
	l.session = s
	l.logger.Printf("録画を開始: %s (モード: %s)", s.id, s.mode)
	return s.id, nil
}

// StopRecording は実行中のセッションを外してワーカーを終了させる
func (l *Loop) StopRecording() (record.Result, error) {
	l.mu.Lock()
	s := l.session
	l.session = nil
	l.mu.Unlock()

	if s == nil {
		return record.Result{}, ErrNoRecording
	}

	result, err := s.worker.Stop()
	if err != nil {
		return result, fmt.Errorf("録画ワーカーの停止に失敗: %w", err)
	}
	l.logger.Printf("録画を終了: %s (%d件) -> %s", s.id, result.Count, result.Path)
	return result, nil
}

// Session は実行中セッションのスナップショットを返す
func (l *Loop) Session() (SessionInfo, bool) {
	l.mu.Lock()
	s := l.session
	l.mu.Unlock()

	if s == nil {
		return SessionInfo{}, false
	}
	return s.info(), true
}

// SetPreviewEnabled はプレビューシンクへのフレーム転送を切り替える
// 高レート録画中のCPU削減用
func (l *Loop) SetPreviewEnabled(enabled bool) {
	l.previewOff.Store(!enabled)
	if enabled {
		l.logger.Printf("プレビューを有効にしました")
	} else {
		l.logger.Printf("プレビューを無効にしました")
	}
}

// PreviewEnabled はプレビュー転送が有効かを返す
func (l *Loop) PreviewEnabled() bool {
	return !l.previewOff.Load()
}

// run は停止されるまでフレームを取得し続ける
func (l *Loop) run(stopCh <-chan struct{}) {
	defer l.wg.Done()

	var total, lastTotal int64
	lastStats := time.Now()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		f, ok := l.source.Grab(grabTimeout)
		if !ok {
			time.Sleep(missSleep)
			continue
		}
		total++

		if !l.previewOff.Load() {
			l.sink.OnFrame(f)
		}

		if s := l.currentSession(); s != nil {
			if s.worker.Write(f) {
				n := s.count.Add(1)
				if n%limitCheckEvery == 0 || (s.maxFrames > 0 && n >= s.maxFrames) {
					if Reached(n, s.maxFrames, s.elapsed(), s.maxSeconds) {
						l.autoStop(s)
					}
				}
			}
		}

		if now := time.Now(); now.Sub(lastStats) >= statsInterval {
			l.emitStats(now.Sub(lastStats), total-lastTotal)
			lastStats = now
			lastTotal = total
		}
	}
}

func (l *Loop) currentSession() *session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// detach はsが現在のセッションである場合に限り外す
// 自動停止とStopRecordingの二重終了を防ぐ
func (l *Loop) detach(s *session) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session != s {
		return false
	}
	l.session = nil
	return true
}

// autoStop は上限到達時の終了処理を行う。ループ自体は動き続ける
func (l *Loop) autoStop(s *session) {
	if !l.detach(s) {
		return
	}

	l.logger.Printf("録画上限に達しました: %s (%dフレーム, %.1f秒)", s.id, s.count.Load(), s.elapsed())
	result, err := s.worker.Stop()
	if err != nil {
		l.logger.Printf("録画ワーカーの停止に失敗: %v", err)
	} else {
		l.logger.Printf("録画を終了: %s (%d件) -> %s", s.id, result.Count, result.Path)
	}
	l.sink.OnAutoStop()
}

// emitStats は統計スナップショットをシンクへ届ける
func (l *Loop) emitStats(dt time.Duration, frames int64) {
	stats := Stats{}
	if dt > 0 {
		stats.FPS = float64(frames) / dt.Seconds()
	}
	if s := l.currentSession(); s != nil {
		stats.Recording = true
		stats.Frames = s.count.Load()
		stats.Elapsed = s.elapsed()
	}
	l.sink.OnStats(stats)
}
