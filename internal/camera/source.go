package camera

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ROI は有効なセンサー領域
type ROI struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

// Range はパラメータの可動範囲
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Inc float64 `json:"inc"`
}

// 代表的なパラメータ名
const (
	ParamExposureUs  = "exposure_us"
	ParamGain        = "gain"
	ParamFrameRate   = "frame_rate"
	ParamPixelFormat = "pixel_format"
)

// Source はフレーム供給元のインターフェース
// Startで取得を開始し、Grabで1フレームずつ引き出す
// 取得ループ実行中はループのゴルーチンだけがGrabを呼ぶこと
type Source interface {
	// Start は取得を開始する
	Start(ctx context.Context) error

	// Stop は取得を停止する。冪等
	Stop() error

	// Grab はtimeout以内に1フレームを返す
	// フレームがない場合は(nil, false)を返し、エラーとしては扱わない
	Grab(timeout time.Duration) (*Frame, bool)

	// ROI は現在のセンサー領域を返す
	ROI() ROI

	// Get はパラメータ値を返す。未知の名前はfalse
	Get(name string) (float64, bool)

	// Set はパラメータ値を設定する。範囲外・未知の名前はエラー
	Set(name string, value float64) error

	// Limits はパラメータの可動範囲を返す。未知の名前はfalse
	Limits(name string) (Range, bool)

	// Symbolics は列挙型パラメータの取りうる値を返す。対象外はnil
	Symbolics(name string) []string

	// Names は照会可能なパラメータ名を返す
	Names() []string
}

// SourceOptions はソース作成設定
type SourceOptions struct {
	Device    string  // V4L2デバイスパス（シミュレーション時は空）
	Width     int
	Height    int
	BitDepth  int     // 8 または 16
	FrameRate float64 // 0は自走（ペーシングなし）
	Simulate  bool
}

// NewSource は設定からソースを作成する
func NewSource(opts SourceOptions) Source {
	if opts.Simulate || opts.Device == "" {
		return NewSimulatedSource(opts)
	}
	return NewFFmpegSource(opts)
}

// parameter は1つのカメラパラメータの現在値と能力
type parameter struct {
	value     float64
	limits    Range
	symbolics []string
}

// paramStore は能力照会可能なパラメータストア
// 取得ループとHTTPハンドラーの双方から参照されるため排他制御を内蔵する
type paramStore struct {
	mu     sync.RWMutex
	params map[string]*parameter
}

func newParamStore() *paramStore {
	return &paramStore{params: make(map[string]*parameter)}
}

// register はパラメータを初期値と範囲付きで登録する
func (s *paramStore) register(name string, value float64, limits Range, symbolics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = &parameter{value: value, limits: limits, symbolics: symbolics}
}

func (s *paramStore) get(name string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[name]
	if !ok {
		return 0, false
	}
	return p.value, true
}

func (s *paramStore) set(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.params[name]
	if !ok {
		return fmt.Errorf("未知のパラメータ: %s", name)
	}
	if value < p.limits.Min || value > p.limits.Max {
		return fmt.Errorf("パラメータ%sが範囲外: %g (範囲 %g〜%g)", name, value, p.limits.Min, p.limits.Max)
	}
	p.value = value
	return nil
}

func (s *paramStore) limits(name string) (Range, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[name]
	if !ok {
		return Range{}, false
	}
	return p.limits, true
}

func (s *paramStore) symbolics(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.params[name]
	if !ok {
		return nil
	}
	return p.symbolics
}

// names は登録済みパラメータ名をソートして返す
func (s *paramStore) names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.params))
	for name := range s.params {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
