package voxelmesh

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLoggerSilent(t *testing.T) {
	SetLogger(nil)
	l := Logger()
	if l == nil {
		t.Fatal("Logger() = nil")
	}
	if l.Enabled(context.Background(), slog.LevelError) {
		t.Error("default logger is enabled; want silent nop logger")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer SetLogger(nil)

	Logger().Warn("triangle overflow", "demand", 42)
	if !strings.Contains(buf.String(), "triangle overflow") {
		t.Errorf("log output missing message: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "demand=42") {
		t.Errorf("log output missing attr: %q", buf.String())
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Logger().Error("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("nop logger wrote output: %q", buf.String())
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	defer SetLogger(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				SetLogger(newNopLogger())
				Logger().Debug("x")
			}
		}()
	}
	wg.Wait()
}
