package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath は設定ファイルのパスを指定する環境変数名
const EnvConfigPath = "RENSHA_CONFIG"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Camera    CameraConfig    `yaml:"camera"`
	Recording RecordingConfig `yaml:"recording"`
	Waterfall WaterfallConfig `yaml:"waterfall"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラソースの設定
type CameraConfig struct {
	Device     string  `yaml:"device"` // デバイスパス (例: /dev/video0)。空ならシミュレーション
	Width      int     `yaml:"width"`  // 画像幅
	Height     int     `yaml:"height"` // 画像高さ
	FPS        float64 `yaml:"fps"`    // フレームレート。0は自走
	ExposureUs float64 `yaml:"exposure_us"`
	Gain       float64 `yaml:"gain"`
	BitDepth   int     `yaml:"bit_depth"` // 8または16
	Simulate   bool    `yaml:"simulate"`  // trueで常にシミュレーションソース
}

// RecordingConfig は録画ワーカーの設定
type RecordingConfig struct {
	OutputDir          string  `yaml:"output_dir"` // 録画ファイルの出力先
	StreamQueueSize    int     `yaml:"stream_queue_size"`
	DumpQueueSize      int     `yaml:"dump_queue_size"`
	WaterfallQueueSize int     `yaml:"waterfall_queue_size"`
	BatchLines         int     `yaml:"batch_lines"` // ウォーターフォールのフラッシュ単位
	KeepRaw            bool    `yaml:"keep_raw"`    // エンコード成功後もrawファイルを残す
	MaxFrames          int64   `yaml:"max_frames"`  // 既定の録画上限。0は無制限
	MaxSeconds         float64 `yaml:"max_seconds"` // 既定の録画上限。0は無制限
}

// WaterfallConfig はライブウォーターフォールとデシア補正の設定
type WaterfallConfig struct {
	PreviewLines int     `yaml:"preview_lines"` // プレビューのリングバッファ行数
	DeshearAngle float64 `yaml:"deshear_angle"` // 度。0で補正なし
	DyUm         float64 `yaml:"dy_um"`         // ライン間の物理送り量
	PixelUm      float64 `yaml:"pixel_um"`      // 画素ピッチ
	Background   int     `yaml:"background"`    // 範囲外画素の埋め値 (0-255)
}

// Load は設定を読み込む
// 既定値の上にRENSHA_CONFIGで指定したYAMLファイル、さらに環境変数を重ねる
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(EnvConfigPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return cfg, nil
}

// defaultConfig は既定の設定を作成する
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // ストリーミング用にタイムアウト無効化
		},
		Camera: CameraConfig{
			Device:     "",
			Width:      1280,
			Height:     720,
			FPS:        24,
			ExposureUs: 10000,
			Gain:       0,
			BitDepth:   8,
			Simulate:   false,
		},
		Recording: RecordingConfig{
			OutputDir:          "./output",
			StreamQueueSize:    1000,
			DumpQueueSize:      10000,
			WaterfallQueueSize: 1000,
			BatchLines:         1000,
			KeepRaw:            false,
			MaxFrames:          0,
			MaxSeconds:         0,
		},
		Waterfall: WaterfallConfig{
			PreviewLines: 500,
			DeshearAngle: 0,
			DyUm:         1.0,
			PixelUm:      1.0,
			Background:   255,
		},
	}
}

// applyEnv は環境変数による上書きを適用する
func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Camera.Simulate = getEnvAsBoolOrDefault("CAMERA_SIMULATE", cfg.Camera.Simulate)
	cfg.Camera.FPS = getEnvAsFloatOrDefault("CAMERA_FPS", cfg.Camera.FPS)
	cfg.Recording.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.Recording.OutputDir)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		return fmt.Errorf("無効な画像サイズ: %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.Width > 65535 {
		return fmt.Errorf("画像幅が大きすぎます: %d", c.Camera.Width)
	}
	if c.Camera.FPS < 0 {
		return fmt.Errorf("無効なフレームレート: %v", c.Camera.FPS)
	}
	if c.Camera.BitDepth != 8 && c.Camera.BitDepth != 16 {
		return fmt.Errorf("無効なビット深度: %d", c.Camera.BitDepth)
	}
	if c.Recording.StreamQueueSize < 1 || c.Recording.DumpQueueSize < 1 || c.Recording.WaterfallQueueSize < 1 {
		return fmt.Errorf("キュー容量は1以上が必要です")
	}
	if c.Recording.BatchLines < 1 {
		return fmt.Errorf("無効なバッチ行数: %d", c.Recording.BatchLines)
	}
	if c.Recording.MaxFrames < 0 || c.Recording.MaxSeconds < 0 {
		return fmt.Errorf("録画上限に負の値は指定できません")
	}
	if c.Waterfall.PreviewLines < 1 {
		return fmt.Errorf("無効なプレビュー行数: %d", c.Waterfall.PreviewLines)
	}
	if c.Waterfall.DeshearAngle < 0 || c.Waterfall.DeshearAngle > 90 {
		return fmt.Errorf("デシア角は0〜90度で指定してください: %v", c.Waterfall.DeshearAngle)
	}
	if c.Waterfall.DyUm <= 0 || c.Waterfall.PixelUm <= 0 {
		return fmt.Errorf("送り量と画素ピッチは正の値が必要です")
	}
	if c.Waterfall.Background < 0 || c.Waterfall.Background > 255 {
		return fmt.Errorf("無効な背景値: %d", c.Waterfall.Background)
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsFloatOrDefault は環境変数を実数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault は環境変数を真偽値として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
