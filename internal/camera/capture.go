package camera

import (
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// FFmpegSource はffmpeg経由でV4L2デバイスからrawvideoフレームを取得する
// ffmpegのstdoutから固定長のグレースケールフレームを読み続ける
type FFmpegSource struct {
	opts   SourceOptions
	params *paramStore

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	frames  chan *Frame
	wg      sync.WaitGroup
}

// NewFFmpegSource は新しいFFmpegSourceを作成する
func NewFFmpegSource(opts SourceOptions) *FFmpegSource {
	if opts.BitDepth != 16 {
		opts.BitDepth = 8
	}

	s := &FFmpegSource{
		opts:   opts,
		params: newParamStore(),
	}

	// 露光とゲインはv4l2-ctl経由で設定する。範囲はドライバー依存のため広めに取る
	s.params.register(ParamExposureUs, 10000, Range{Min: 1, Max: 10000000, Inc: 1}, nil)
	s.params.register(ParamGain, 0, Range{Min: 0, Max: 255, Inc: 1}, nil)
	s.params.register(ParamFrameRate, opts.FrameRate, Range{Min: 0, Max: 10000, Inc: 0.01}, nil)

	return s
}

// Start はffmpegを起動してフレーム読み取りを開始する
func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("すでに開始しています: %s", s.opts.Device)
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpegが見つかりません: %w", err)
	}

	pixFmt := "gray"
	if s.opts.BitDepth == 16 {
		pixFmt = "gray16le"
	}

	args := []string{
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.opts.Width, s.opts.Height),
	}
	if s.opts.FrameRate > 0 {
		args = append(args, "-framerate", strconv.FormatFloat(s.opts.FrameRate, 'f', -1, 64))
	}
	args = append(args,
		"-i", s.opts.Device,
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-an",
		"-",
	)

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stdoutパイプの作成に失敗: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("stderrパイプの作成に失敗: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	s.cancel = cancel
	s.frames = make(chan *Frame, 4)
	s.running = true

	// stderrは読み捨てる（詰まり防止）
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		buf := make([]byte, 1024)
		for {
			if _, err := stderr.Read(buf); err != nil {
				return
			}
		}
	}()

	s.wg.Add(1)
	go s.readFrames(procCtx, cmd, stdout)

	log.Printf("カメラキャプチャを開始: %s (%dx%d %dビット)", s.opts.Device, s.opts.Width, s.opts.Height, s.opts.BitDepth)
	return nil
}

// readFrames はstdoutから固定長フレームを読み続ける
func (s *FFmpegSource) readFrames(ctx context.Context, cmd *exec.Cmd, stdout io.Reader) {
	defer s.wg.Done()
	defer func() {
		_ = cmd.Wait()
	}()

	frameSize := s.opts.Width * s.opts.Height
	if s.opts.BitDepth == 16 {
		frameSize *= 2
	}

	for {
		pix := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, pix); err != nil {
			if ctx.Err() == nil {
				log.Printf("フレーム読み取りを終了: %v", err)
			}
			return
		}

		f := &Frame{
			Width:    s.opts.Width,
			Height:   s.opts.Height,
			BitDepth: s.opts.BitDepth,
			Pix:      pix,
		}

		// チャネルが満杯なら最も古いフレームを捨てて新しいものを優先する
		select {
		case s.frames <- f:
		default:
			select {
			case <-s.frames:
			default:
			}
			select {
			case s.frames <- f:
			default:
			}
		}
	}
}

// Stop はffmpegを停止して読み取りゴルーチンの終了を待つ
func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Printf("カメラキャプチャを停止: %s", s.opts.Device)
	return nil
}

// Grab はtimeout以内に1フレームを返す
func (s *FFmpegSource) Grab(timeout time.Duration) (*Frame, bool) {
	s.mu.Lock()
	frames := s.frames
	running := s.running
	s.mu.Unlock()

	if !running || frames == nil {
		return nil, false
	}

	select {
	case f := <-frames:
		return f, true
	case <-time.After(timeout):
		return nil, false
	}
}

// ROI は現在のセンサー領域を返す
func (s *FFmpegSource) ROI() ROI {
	return ROI{Width: s.opts.Width, Height: s.opts.Height}
}

// Get はパラメータ値を返す
func (s *FFmpegSource) Get(name string) (float64, bool) {
	return s.params.get(name)
}

// Set はパラメータ値を設定する
// 露光とゲインはv4l2-ctlで即時デバイスへの反映を試みる
// frame_rateの変更は次のStartから有効
func (s *FFmpegSource) Set(name string, value float64) error {
	if err := s.params.set(name, value); err != nil {
		return err
	}

	switch name {
	case ParamExposureUs:
		// V4L2のexposure_time_absoluteは100µs単位
		s.setV4L2Control("exposure_time_absolute", strconv.Itoa(int(value/100)))
	case ParamGain:
		s.setV4L2Control("gain", strconv.Itoa(int(value)))
	}
	return nil
}

// setV4L2Control はv4l2-ctlでデバイスコントロールを設定する。失敗はログのみ
func (s *FFmpegSource) setV4L2Control(ctrl, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", s.opts.Device,
		"--set-ctrl", fmt.Sprintf("%s=%s", ctrl, value))
	if err := cmd.Run(); err != nil {
		log.Printf("v4l2コントロールの設定に失敗 (%s=%s): %v", ctrl, value, err)
	}
}

// Limits はパラメータの可動範囲を返す
func (s *FFmpegSource) Limits(name string) (Range, bool) {
	return s.params.limits(name)
}

// Symbolics は列挙型パラメータの取りうる値を返す
func (s *FFmpegSource) Symbolics(name string) []string {
	return s.params.symbolics(name)
}

// Names は照会可能なパラメータ名を返す
func (s *FFmpegSource) Names() []string {
	return s.params.names()
}
