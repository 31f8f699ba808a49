package record

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"time"
)

// ErrEncoderNotFound はエンコーダ実行ファイルが見つからないことを示す
// エンコード実行時の失敗とは区別して呼び出し側へ報告する
var ErrEncoderNotFound = errors.New("エンコーダ(ffmpeg)が見つかりません")

// LocateEncoder はffmpegの実行ファイルパスを解決する
func LocateEncoder() (string, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncoderNotFound, err)
	}
	return path, nil
}

// encoderSession は起動済みエンコーダへのフレーム供給セッション
// テストではインメモリ実装に差し替える
type encoderSession interface {
	WriteFrame(pix []byte) error
	Finish(timeout time.Duration) error
}

// ffmpegSession はstdinパイプでrawvideoを受け取るffmpegプロセス
type ffmpegSession struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
}

// streamArgs はH.264ストリーミング録画の引数を組み立てる
func streamArgs(width, height int, fps float64, outPath string) []string {
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", formatFPS(fps),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-y",
		outPath,
	}
}

// rawArgs は無圧縮AVI出力の引数を組み立てる（ダンプの後段エンコード用）
func rawArgs(width, height int, fps float64, outPath string) []string {
	return []string{
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", formatFPS(fps),
		"-i", "-",
		"-c:v", "rawvideo",
		"-pix_fmt", "gray",
		"-y",
		outPath,
	}
}

func formatFPS(fps float64) string {
	if fps <= 0 {
		fps = 24
	}
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

// newFFmpegSession はffmpegを起動してstdinパイプを開く
func newFFmpegSession(args []string) (*ffmpegSession, error) {
	bin, err := LocateEncoder()
	if err != nil {
		return nil, err
	}

	s := &ffmpegSession{cmd: exec.Command(bin, args...)}
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdinパイプの作成に失敗: %w", err)
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("エンコーダの起動に失敗: %w", err)
	}
	return s, nil
}

// WriteFrame は1フレーム分の画素列をstdinへ書き込む
func (s *ffmpegSession) WriteFrame(pix []byte) error {
	if _, err := s.stdin.Write(pix); err != nil {
		return fmt.Errorf("エンコーダへの書き込みに失敗: %w", err)
	}
	return nil
}

// Finish はstdinを閉じてエンコーダの終了を待つ
// timeout超過時は最終手段としてプロセスを強制終了する
func (s *ffmpegSession) Finish(timeout time.Duration) error {
	_ = s.stdin.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("エンコーダが異常終了: %w (stderr: %s)", err, tailString(s.stderr.String(), 400))
		}
		return nil
	case <-time.After(timeout):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-done
		return fmt.Errorf("エンコーダの終了待ちがタイムアウトしました (%s)", timeout)
	}
}

// tailString は長い診断出力の末尾だけを返す
func tailString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
