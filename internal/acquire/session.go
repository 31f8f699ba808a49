package acquire

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rensha/internal/record"
)

// SessionOptions は録画セッションの開始パラメータ
type SessionOptions struct {
	Mode       string  // stream / dump / waterfall
	MaxFrames  int64   // 0は無制限
	MaxSeconds float64 // 0は無制限
}

// SessionInfo は実行中セッションのスナップショット
type SessionInfo struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	Frames     int64     `json:"frames"`
	MaxFrames  int64     `json:"max_frames,omitempty"`
	MaxSeconds float64   `json:"max_seconds,omitempty"`
}

// session は実行中の録画セッション
// countの更新は取得ループだけが行う
type session struct {
	id         string
	mode       string
	worker     record.Worker
	startedAt  time.Time
	maxFrames  int64
	maxSeconds float64
	count      atomic.Int64
}

func newSession(worker record.Worker, opts SessionOptions) *session {
	return &session{
		id:         uuid.New().String(),
		mode:       opts.Mode,
		worker:     worker,
		startedAt:  time.Now(),
		maxFrames:  opts.MaxFrames,
		maxSeconds: opts.MaxSeconds,
	}
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:         s.id,
		Mode:       s.mode,
		StartedAt:  s.startedAt,
		Frames:     s.count.Load(),
		MaxFrames:  s.maxFrames,
		MaxSeconds: s.maxSeconds,
	}
}

func (s *session) elapsed() float64 {
	return time.Since(s.startedAt).Seconds()
}
