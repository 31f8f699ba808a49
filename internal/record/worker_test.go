package record

import (
	"regexp"
	"sync"
	"testing"
	"time"
)

func TestTimestampName(t *testing.T) {
	name := TimestampName("vid", ".mp4")
	pattern := regexp.MustCompile(`^vid_\d{8}-\d{6}\.mp4$`)
	if !pattern.MatchString(name) {
		t.Errorf("Unexpected name format: %s", name)
	}
}

func TestJoinTimeout(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		perItem  time.Duration
		expected time.Duration
	}{
		{"空のキュー", 0, 10 * time.Millisecond, 2 * time.Second},
		{"100件の残り", 100, 10 * time.Millisecond, 3 * time.Second},
		{"1000件の残り", 1000, time.Millisecond, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinTimeout(tt.depth, tt.perItem); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestWaitTimeout(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		time.Sleep(10 * time.Millisecond)
		wg.Done()
	}()
	if !waitTimeout(&wg, time.Second) {
		t.Error("Expected waitTimeout to succeed")
	}

	var stuck sync.WaitGroup
	stuck.Add(1)
	if waitTimeout(&stuck, 20*time.Millisecond) {
		t.Error("Expected waitTimeout to give up")
	}
	stuck.Done()
}
