package camera

import (
	"context"
	"sync"
	"time"
)

// SimulatedSource は合成テストパターンを生成するフレーム供給元
// 実デバイスなしでパイプライン全体を動かすために使う
// パターンは決定的で、横方向グラデーションの上を明るいバーが1画素/フレームで流れる
type SimulatedSource struct {
	mu       sync.Mutex
	opts     SourceOptions
	params   *paramStore
	bitDepth int
	running  bool
	seq      int64
	nextDue  time.Time
}

// NewSimulatedSource は新しいSimulatedSourceを作成する
func NewSimulatedSource(opts SourceOptions) *SimulatedSource {
	if opts.Width < 1 {
		opts.Width = 640
	}
	if opts.Height < 1 {
		opts.Height = 480
	}
	if opts.BitDepth != 16 {
		opts.BitDepth = 8
	}

	s := &SimulatedSource{
		opts:     opts,
		params:   newParamStore(),
		bitDepth: opts.BitDepth,
	}

	s.params.register(ParamExposureUs, 10000, Range{Min: 1, Max: 1000000, Inc: 1}, nil)
	s.params.register(ParamGain, 0, Range{Min: 0, Max: 48, Inc: 0.1}, nil)
	s.params.register(ParamFrameRate, opts.FrameRate, Range{Min: 0, Max: 100000, Inc: 0.01}, nil)
	format := float64(0)
	if opts.BitDepth == 16 {
		format = 1
	}
	s.params.register(ParamPixelFormat, format, Range{Min: 0, Max: 1, Inc: 1}, []string{"Mono8", "Mono16"})

	return s
}

// Start は取得を開始する
func (s *SimulatedSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	s.nextDue = time.Now()
	return nil
}

// Stop は取得を停止する
func (s *SimulatedSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Grab は1フレームを生成して返す
// frame_rateが正の場合はそのレートにペーシングし、
// 次のフレームがtimeout内に来ないときは(nil, false)を返す
// frame_rate 0は自走で、呼ばれるたびに即座に生成する
func (s *SimulatedSource) Grab(timeout time.Duration) (*Frame, bool) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil, false
	}
	fps, _ := s.params.get(ParamFrameRate)
	due := s.nextDue
	s.mu.Unlock()

	if fps > 0 {
		now := time.Now()
		if due.After(now) {
			wait := due.Sub(now)
			if wait > timeout {
				time.Sleep(timeout)
				return nil, false
			}
			time.Sleep(wait)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, false
	}
	if fps > 0 {
		interval := time.Duration(float64(time.Second) / fps)
		s.nextDue = s.nextDue.Add(interval)
		// 大きく遅延した場合は現在時刻に再同期してバーストを防ぐ
		if time.Since(s.nextDue) > interval {
			s.nextDue = time.Now().Add(interval)
		}
	}

	f := s.render()
	s.seq++
	return f, true
}

// render は現在のシーケンス番号に応じたパターンを生成する
func (s *SimulatedSource) render() *Frame {
	w, h := s.opts.Width, s.opts.Height
	f := &Frame{Width: w, Height: h, BitDepth: s.bitDepth}

	bar := int(s.seq % int64(w))
	denom := w - 1
	if denom < 1 {
		denom = 1
	}

	row := make([]byte, w)
	for x := 0; x < w; x++ {
		v := byte(x * 255 / denom)
		d := x - bar
		if d < 0 {
			d = -d
		}
		if d <= 2 {
			v = 255
		}
		row[x] = v
	}

	if s.bitDepth == 16 {
		f.Pix = make([]byte, w*h*2)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v16 := uint16(row[x])<<8 | uint16(row[x])
				i := (y*w + x) * 2
				f.Pix[i] = byte(v16)
				f.Pix[i+1] = byte(v16 >> 8)
			}
		}
		return f
	}

	f.Pix = make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(f.Pix[y*w:(y+1)*w], row)
	}
	return f
}

// ROI は現在のセンサー領域を返す
func (s *SimulatedSource) ROI() ROI {
	return ROI{Width: s.opts.Width, Height: s.opts.Height}
}

// Get はパラメータ値を返す
func (s *SimulatedSource) Get(name string) (float64, bool) {
	return s.params.get(name)
}

// Set はパラメータ値を設定する
// pixel_formatの変更は以後のフレームのビット深度に反映される
func (s *SimulatedSource) Set(name string, value float64) error {
	if err := s.params.set(name, value); err != nil {
		return err
	}
	if name == ParamPixelFormat {
		s.mu.Lock()
		if value >= 1 {
			s.bitDepth = 16
		} else {
			s.bitDepth = 8
		}
		s.mu.Unlock()
	}
	return nil
}

// Limits はパラメータの可動範囲を返す
func (s *SimulatedSource) Limits(name string) (Range, bool) {
	return s.params.limits(name)
}

// Symbolics は列挙型パラメータの取りうる値を返す
func (s *SimulatedSource) Symbolics(name string) []string {
	return s.params.symbolics(name)
}

// Names は照会可能なパラメータ名を返す
func (s *SimulatedSource) Names() []string {
	return s.params.names()
}
