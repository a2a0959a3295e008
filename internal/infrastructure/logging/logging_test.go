package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestConsoleHandler_Formats(t *testing.T) {
	for _, format := range []string{"", "text", "json", "pretty"} {
		var buf bytes.Buffer
		handler, err := consoleHandler(&buf, format, slog.LevelInfo)
		if err != nil {
			t.Fatalf("format %q: %v", format, err)
		}
		slog.New(handler).Info("hello", "address", "0xabc")
		if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "0xabc") {
			t.Errorf("format %q produced %q", format, buf.String())
		}
	}
	if _, err := consoleHandler(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTeeHandler_RespectsLevels(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	logger := slog.New(fanout([]slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	})).With("component", "test")

	logger.Debug("low")
	logger.Warn("high")

	if !strings.Contains(debugBuf.String(), "low") || !strings.Contains(debugBuf.String(), "high") {
		t.Errorf("debug handler missed records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "low") || !strings.Contains(warnBuf.String(), "component=test") {
		t.Errorf("warn handler output unexpected: %q", warnBuf.String())
	}
}

type stepClock struct {
	current time.Time
}

func (c *stepClock) now() time.Time { return c.current }

func (c *stepClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func TestRotatingWriter_RollsOverAndPrunes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	path := filepath.Join(dir, "ethtracker.log")
	clock := &stepClock{current: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)}
	writer, err := newRotatingWriter(path, Rotation{MaxSizeMB: 1, MaxBackups: 2}, clock.now)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer writer.Close()
	if err := os.WriteFile(filepath.Join(dir, "ethtracker-notes.log"), []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 4; i++ {
		clock.advance(time.Second)
		if _, err := writer.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	backups, err := writer.backups()
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	want := []string{
		filepath.Join(dir, "ethtracker-20261019T080003.000000000.log"),
		filepath.Join(dir, "ethtracker-20261019T080004.000000000.log"),
	}
	if len(backups) != len(want) || backups[0] != want[0] || backups[1] != want[1] {
		t.Fatalf("unexpected backups %v", backups)
	}
	for _, name := range append(backups, path) {
		info, err := os.Stat(name)
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if info.Size() != int64(len(chunk)) {
			t.Errorf("%s has size %d", name, info.Size())
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "ethtracker-notes.log")); err != nil {
		t.Errorf("unrelated file pruned: %v", err)
	}
}

func TestRotatingWriter_RollsOverByAge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	clock := &stepClock{current: time.Now()}
	writer, err := newRotatingWriter(path, Rotation{MaxSizeMB: 1, MaxAge: time.Hour, MaxBackups: 3}, clock.now)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer writer.Close()

	_, _ = writer.Write([]byte("a"))
	clock.advance(30 * time.Minute)
	_, _ = writer.Write([]byte("b"))
	if backups, _ := writer.backups(); len(backups) != 0 {
		t.Fatalf("rolled too early: %v", backups)
	}

	clock.advance(31 * time.Minute)
	_, _ = writer.Write([]byte("c"))
	backups, _ := writer.backups()
	if len(backups) != 1 {
		t.Fatalf("expected one age-based roll, got %v", backups)
	}
	rolled, _ := os.ReadFile(backups[0])
	current, _ := os.ReadFile(path)
	if string(rolled) != "ab" || string(current) != "c" {
		t.Errorf("unexpected contents rolled=%q current=%q", rolled, current)
	}
}

func TestRotatingWriter_NoBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	writer, err := NewRotatingWriter(path, Rotation{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	chunk := bytes.Repeat([]byte("y"), 700*1024)
	_, _ = writer.Write(chunk)
	_, _ = writer.Write(chunk)
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if backups, _ := writer.backups(); len(backups) != 0 {
		t.Errorf("no backups expected, got %v", backups)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() != int64(len(chunk)) {
		t.Errorf("unexpected file state %v %v", info, err)
	}
}
