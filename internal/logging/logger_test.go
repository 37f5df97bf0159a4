package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("parse log line %q: %v", scanner.Text(), err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_WritesJSONToSessionDir(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelInfo, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	l.Info("round started", "round", 1)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readEntries(t, filepath.Join(dir, "debug.log"))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["msg"] != "round started" {
		t.Errorf("msg = %v", entries[0]["msg"])
	}
	if entries[0]["round"] != float64(1) {
		t.Errorf("round = %v", entries[0]["round"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelWarn, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown")
	l.Close()

	entries := readEntries(t, filepath.Join(dir, "debug.log"))
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestLogger_ChildAttributes(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, LevelDebug, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	child := l.WithSession("s1").WithAgent("critic").WithRound(2).WithPhase("plan")
	child.Info("critique submitted")

	// Parent is unaffected by child attributes.
	l.Info("bare")
	l.Close()

	entries := readEntries(t, filepath.Join(dir, "debug.log"))
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	first := entries[0]
	if first["session_id"] != "s1" || first["agent"] != "critic" || first["phase"] != "plan" {
		t.Errorf("child attrs missing: %v", first)
	}
	if first["round"] != float64(2) {
		t.Errorf("round = %v", first["round"])
	}
	if _, ok := entries[1]["agent"]; ok {
		t.Error("parent logger picked up child attribute")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != LevelDebug {
		t.Error("lowercase debug should parse")
	}
	if ParseLevel("nonsense") != LevelInfo {
		t.Error("unknown level should default to INFO")
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info("discarded")
	if err := l.Close(); err != nil {
		t.Errorf("Close on nop logger: %v", err)
	}
}

func TestRotatingWriter_RotatesAtThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	// 1 MB threshold; write just past it.
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}

	chunk := []byte(strings.Repeat("x", 512*1024))
	for i := 0; i < 3; i++ {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Error("expected a .1 backup after rotation")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat current file: %v", err)
	}
	if info.Size() > 1024*1024 {
		t.Errorf("current file size %d exceeds threshold", info.Size())
	}
}

func TestRotatingWriter_ZeroThresholdNeverRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	rw, err := NewRotatingWriter(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	for i := 0; i < 100; i++ {
		rw.Write([]byte(strings.Repeat("y", 1024)))
	}
	rw.Close()

	if _, err := os.Stat(path + ".1"); err == nil {
		t.Error("rotation disabled but backup exists")
	}
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	dir := t.TempDir()
	rw, err := NewRotatingWriter(filepath.Join(dir, "out.log"), DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	rw.Close()

	if _, err := rw.Write([]byte("late")); err == nil {
		t.Error("write after close should fail")
	}
}
