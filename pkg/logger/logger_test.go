package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Info(context.Background(), "test message")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := SetOutput(&buf); err != nil {
		t.Fatalf("set output: %v", err)
	}
	if err := SetFormat(FormatJSON); err != nil {
		t.Fatalf("set format: %v", err)
	}
	defer func() {
		_ = SetFormat(FormatText)
		_ = SetOutput(os.Stdout)
	}()

	Named("capture").Info(context.Background(), "reading appended",
		String("id", "r-1"),
		Int64("rate", 42),
		Bool("relevant", true),
		Duration("took", 2*time.Second),
		Error(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "reading appended" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
	if rec["component"] != "capture" {
		t.Errorf("unexpected component: %v", rec["component"])
	}
	if rec["rate"] != float64(42) {
		t.Errorf("unexpected rate: %v", rec["rate"])
	}
	if rec["relevant"] != true {
		t.Errorf("unexpected relevant: %v", rec["relevant"])
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("unexpected source: %v", rec["source"])
	}
}

func TestSetFormatRejectsUnknown(t *testing.T) {
	if err := SetFormat("xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := SetOutput(&buf); err != nil {
		t.Fatalf("set output: %v", err)
	}
	defer func() {
		_ = SetLevelString("info")
		_ = SetOutput(os.Stdout)
	}()

	if err := SetLevelString("error"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("info line written at error level: %q", buf.String())
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}
