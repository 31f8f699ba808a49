package record

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Recording は出力ディレクトリ内の録画ファイル1件の情報
type Recording struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"` // video / waterfall / snapshot
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ListRecordings は出力ディレクトリの録画ファイルを新しい順に返す
// ディレクトリが存在しない場合は空リストを返す
func ListRecordings(dir string) ([]Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Recording{}, nil
		}
		return nil, fmt.Errorf("出力ディレクトリの読み取りに失敗: %w", err)
	}

	recordings := make([]Recording, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind := recordingKind(entry.Name())
		if kind == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		recordings = append(recordings, Recording{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Kind:      kind,
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].ModTime.After(recordings[j].ModTime)
	})
	return recordings, nil
}

// recordingKind はファイル名の接頭辞から録画種別を判定する
func recordingKind(name string) string {
	switch {
	case strings.HasPrefix(name, "vid_"):
		return "video"
	case strings.HasPrefix(name, "wtf_"):
		return "waterfall"
	case strings.HasPrefix(name, "img_"):
		return "snapshot"
	default:
		return ""
	}
}
