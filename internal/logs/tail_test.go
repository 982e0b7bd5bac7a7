package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"autoposter/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoposter.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestLastReturnsTrailingLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	lines, offset, err := logs.Last(path, 2)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines %#v", lines)
	}
	if offset != 6 {
		t.Fatalf("expected offset 6, got %d", offset)
	}

	lines, _, err = logs.Last(path, 10)
	if err != nil || len(lines) != 3 || lines[0] != "a" {
		t.Fatalf("short file: %#v (err %v)", lines, err)
	}
}

func TestLastMissingFile(t *testing.T) {
	lines, offset, err := logs.Last(filepath.Join(t.TempDir(), "none.log"), 5)
	if err != nil || lines != nil || offset != 0 {
		t.Fatalf("expected empty result, got %#v %d %v", lines, offset, err)
	}
}

func TestSinceLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthr")

	lines, offset, err := logs.Since(path, 0)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(lines) != 2 || offset != 8 {
		t.Fatalf("unexpected %#v at %d", lines, offset)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("ee\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	lines, _, err = logs.Since(path, offset)
	if err != nil || len(lines) != 1 || lines[0] != "three" {
		t.Fatalf("expected completed line, got %#v (err %v)", lines, err)
	}
}

func TestSinceRestartsAfterTruncation(t *testing.T) {
	path := writeLog(t, "fresh\n")
	lines, _, err := logs.Since(path, 500)
	if err != nil || len(lines) != 1 || lines[0] != "fresh" {
		t.Fatalf("expected reread from start, got %#v (err %v)", lines, err)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "old\n")
	_, offset, err := logs.Last(path, 0)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("new\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("expected only the appended line, got %#v", got)
	}
}

func TestMatchesItem(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"2026-03-02 10:00:00 INFO writer: drafted item_id=42 stage=writing", true},
		{"2026-03-02 10:00:00 INFO writer: drafted item_id=420", false},
		{"x item_id=420 y item_id=42", true},
		{`{"msg":"drafted","item_id":42}`, true},
		{`{"msg":"drafted","item_id":4}`, false},
		{"no id here", false},
	}
	for _, tt := range tests {
		if got := logs.MatchesItem(tt.line, 42); got != tt.want {
			t.Fatalf("MatchesItem(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
