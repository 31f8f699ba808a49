package server

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"rensha/internal/acquire"
	"rensha/internal/camera"
	"rensha/internal/record"
	"rensha/internal/waterfall"
)

// previewFrameInterval はMJPEG配信のフレーム間隔
const previewFrameInterval = 66 * time.Millisecond

// errorResponse はAPIエラーの共通形式
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func abortError(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// statusResponse はシステム状態の応答
type statusResponse struct {
	Status         string               `json:"status"`
	Server         serverInfo           `json:"server"`
	Camera         cameraInfo           `json:"camera"`
	Stats          acquire.Stats        `json:"stats"`
	Session        *acquire.SessionInfo `json:"session,omitempty"`
	PreviewEnabled bool                 `json:"preview_enabled"`
	LastAutoStop   *time.Time           `json:"last_auto_stop,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

type serverInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type cameraInfo struct {
	Device   string  `json:"device,omitempty"`
	Simulate bool    `json:"simulate"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	BitDepth int     `json:"bit_depth"`
	FPS      float64 `json:"fps"`
}

// handleStatus はシステム状態取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	roi := s.source.ROI()
	fps := s.config.Camera.FPS
	if v, ok := s.source.Get(camera.ParamFrameRate); ok {
		fps = v
	}

	response := statusResponse{
		Status: "running",
		Server: serverInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Camera: cameraInfo{
			Device:   s.config.Camera.Device,
			Simulate: s.config.Camera.Simulate,
			Width:    roi.Width,
			Height:   roi.Height,
			BitDepth: s.config.Camera.BitDepth,
			FPS:      fps,
		},
		Stats:          s.hub.Stats(),
		PreviewEnabled: s.loop.PreviewEnabled(),
		Timestamp:      time.Now(),
	}
	if info, ok := s.loop.Session(); ok {
		response.Session = &info
	}
	if at, ok := s.hub.LastAutoStop(); ok {
		response.LastAutoStop = &at
	}

	c.JSON(http.StatusOK, response)
}

// handleDevices は接続中のビデオデバイス一覧を返す
func (s *Server) handleDevices(c *gin.Context) {
	devices, err := camera.ScanDevices(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusInternalServerError, "scan_failed", err.Error())
		return
	}

	type deviceInfo struct {
		Device string `json:"device"`
		Name   string `json:"name"`
	}
	list := make([]deviceInfo, 0, len(devices))
	for _, dev := range devices {
		list = append(list, deviceInfo{Device: dev, Name: camera.DeviceName(dev)})
	}
	c.JSON(http.StatusOK, gin.H{"devices": list})
}

// paramInfo はカメラパラメータ1件の情報
type paramInfo struct {
	Name      string   `json:"name"`
	Value     float64  `json:"value"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Inc       float64  `json:"inc"`
	Symbolics []string `json:"symbolics,omitempty"`
}

// handleParams はカメラパラメータ一覧を返す
func (s *Server) handleParams(c *gin.Context) {
	names := s.source.Names()
	params := make([]paramInfo, 0, len(names))
	for _, name := range names {
		info := paramInfo{Name: name}
		if v, ok := s.source.Get(name); ok {
			info.Value = v
		}
		if r, ok := s.source.Limits(name); ok {
			info.Min = r.Min
			info.Max = r.Max
			info.Inc = r.Inc
		}
		info.Symbolics = s.source.Symbolics(name)
		params = append(params, info)
	}
	c.JSON(http.StatusOK, gin.H{"params": params})
}

// handleSetParam はカメラパラメータを設定する
func (s *Server) handleSetParam(c *gin.Context) {
	name := c.Param("name")

	var req struct {
		Value *float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
		abortError(c, http.StatusBadRequest, "invalid_request", "valueが必要です")
		return
	}

	if err := s.source.Set(name, *req.Value); err != nil {
		abortError(c, http.StatusBadRequest, "set_failed", err.Error())
		return
	}

	value, _ := s.source.Get(name)
	c.JSON(http.StatusOK, gin.H{"name": name, "value": value})
}

// handleRecordStart は録画セッションを開始する
func (s *Server) handleRecordStart(c *gin.Context) {
	var req struct {
		Mode       string  `json:"mode"`
		MaxFrames  int64   `json:"max_frames"`
		MaxSeconds float64 `json:"max_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "invalid_request", "リクエストボディが不正です")
		return
	}
	if req.MaxFrames == 0 {
		req.MaxFrames = s.config.Recording.MaxFrames
	}
	if req.MaxSeconds == 0 {
		req.MaxSeconds = s.config.Recording.MaxSeconds
	}

	if err := os.MkdirAll(s.config.Recording.OutputDir, 0755); err != nil {
		abortError(c, http.StatusInternalServerError, "output_dir_failed", err.Error())
		return
	}

	worker, path, err := s.makeWorker(req.Mode)
	if err != nil {
		abortError(c, http.StatusBadRequest, "unknown_mode", err.Error())
		return
	}

	id, err := s.loop.StartRecording(worker, acquire.SessionOptions{
		Mode:       req.Mode,
		MaxFrames:  req.MaxFrames,
		MaxSeconds: req.MaxSeconds,
	})
	if err != nil {
		switch {
		case errors.Is(err, acquire.ErrRecordingActive):
			abortError(c, http.StatusConflict, "recording_active", err.Error())
		case errors.Is(err, acquire.ErrLoopNotRunning):
			abortError(c, http.StatusConflict, "loop_not_running", err.Error())
		case errors.Is(err, record.ErrEncoderNotFound):
			abortError(c, http.StatusServiceUnavailable, "encoder_not_found", err.Error())
		default:
			abortError(c, http.StatusInternalServerError, "start_failed", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "mode": req.Mode, "path": path})
}

// makeWorker はモード名から録画ワーカーと出力先を組み立てる
func (s *Server) makeWorker(mode string) (record.Worker, string, error) {
	roi := s.source.ROI()
	fps := s.config.Camera.FPS
	if v, ok := s.source.Get(camera.ParamFrameRate); ok && v > 0 {
		fps = v
	}
	outDir := s.config.Recording.OutputDir

	switch mode {
	case "stream":
		path := filepath.Join(outDir, record.TimestampName("vid", ".mp4"))
		return record.NewStreamingWorker(record.StreamConfig{
			Path:      path,
			Width:     roi.Width,
			Height:    roi.Height,
			FrameRate: fps,
			QueueSize: s.config.Recording.StreamQueueSize,
		}), path, nil
	case "dump":
		path := filepath.Join(outDir, record.TimestampName("vid", ".avi"))
		return record.NewDumpWorker(record.DumpConfig{
			Dir:       filepath.Join(outDir, record.TimestampName("raw", "")),
			OutPath:   path,
			Width:     roi.Width,
			Height:    roi.Height,
			FrameRate: fps,
			QueueSize: s.config.Recording.DumpQueueSize,
			KeepRaw:   s.config.Recording.KeepRaw,
		}), path, nil
	case "waterfall":
		path := filepath.Join(outDir, record.TimestampName("wtf", ".wtf"))
		return record.NewWaterfallWorker(record.WaterfallConfig{
			Path:         path,
			Width:        roi.Width,
			DeshearAngle: s.config.Waterfall.DeshearAngle,
			QueueSize:    s.config.Recording.WaterfallQueueSize,
			BatchLines:   s.config.Recording.BatchLines,
		}), path, nil
	default:
		return nil, "", errors.New("モードはstream/dump/waterfallのいずれかを指定してください")
	}
}

// handleRecordStop は録画セッションを停止する
func (s *Server) handleRecordStop(c *gin.Context) {
	result, err := s.loop.StopRecording()
	if err != nil {
		switch {
		case errors.Is(err, acquire.ErrNoRecording):
			abortError(c, http.StatusConflict, "no_recording", err.Error())
		case errors.Is(err, record.ErrEncoderNotFound):
			abortError(c, http.StatusServiceUnavailable, "encoder_not_found", err.Error())
		default:
			// rawファイル保持などの部分結果があればパスを添える
			response := errorResponse{Error: "stop_failed", Message: err.Error(), Timestamp: time.Now()}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     response.Error,
				"message":   response.Message,
				"path":      result.Path,
				"count":     result.Count,
				"timestamp": response.Timestamp,
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"path": result.Path, "count": result.Count})
}

// handleRecordings は録画ファイル一覧を返す
func (s *Server) handleRecordings(c *gin.Context) {
	recordings, err := record.ListRecordings(s.config.Recording.OutputDir)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": recordings})
}

// handlePreviewEnabled はプレビュー配信の有効・無効を切り替える
func (s *Server) handlePreviewEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		abortError(c, http.StatusBadRequest, "invalid_request", "enabledが必要です")
		return
	}

	s.loop.SetPreviewEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"preview_enabled": *req.Enabled})
}

// handlePreview はMJPEGストリームを配信する
func (s *Server) handlePreview(c *gin.Context) {
	// レスポンスヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	ticker := time.NewTicker(previewFrameInterval)
	defer ticker.Stop()

	// ストリーミングループ。最新フレームを一定間隔でJPEG化して流す
	for {
		select {
		case <-clientGone:
			return

		case <-ticker.C:
			frame, ok := s.hub.Frame()
			if !ok {
				continue
			}
			data, err := encodeJPEG(frame)
			if err != nil {
				continue
			}

			if _, err := writer.Write([]byte("--frame\r\n")); err != nil {
				return
			}
			if _, err := writer.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
				return
			}
			if _, err := writer.Write(data); err != nil {
				return
			}
			if _, err := writer.Write([]byte("\r\n")); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}

// handleSnapshot は最新フレームをPNGで返す
// save=1を指定すると出力ディレクトリへ保存してパスを返す
func (s *Server) handleSnapshot(c *gin.Context) {
	frame, ok := s.hub.Frame()
	if !ok {
		abortError(c, http.StatusNotFound, "no_frame", "フレームがまだ取得されていません")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, grayImage(frame)); err != nil {
		abortError(c, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}

	if c.Query("save") == "1" {
		if err := os.MkdirAll(s.config.Recording.OutputDir, 0755); err != nil {
			abortError(c, http.StatusInternalServerError, "output_dir_failed", err.Error())
			return
		}
		path := filepath.Join(s.config.Recording.OutputDir, record.TimestampName("img", ".png"))
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			abortError(c, http.StatusInternalServerError, "save_failed", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"path": path})
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handleWaterfallPNG はライブウォーターフォールをPNGで返す
// deshear=1でデシア補正を適用する
func (s *Server) handleWaterfallPNG(c *gin.Context) {
	rows := s.hub.WaterfallRows()
	width := s.hub.WaterfallWidth()

	if c.Query("deshear") == "1" {
		w := s.config.Waterfall
		rows = waterfall.Deshear(rows, w.DeshearAngle, w.DyUm, w.PixelUm, byte(w.Background))
	}

	var buf bytes.Buffer
	if err := waterfall.WritePNG(&buf, rows, width); err != nil {
		abortError(c, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// handleIndex は操作用ページを返す
func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", getIndexHTML())
}

// grayImage はフレームをimage.Grayに変換する
func grayImage(f *camera.Frame) *image.Gray {
	return &image.Gray{
		Pix:    f.Gray8(),
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// encodeJPEG はフレームをJPEGに変換する
func encodeJPEG(f *camera.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, grayImage(f), &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
