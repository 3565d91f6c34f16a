package applog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(Close)

	Info("badge.render", "text", "3/9")
	Error("ws.send", errors.New("boom"), "action", "setTitle")

	data, err := os.ReadFile(filepath.Join(dir, "tabcounter.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"msg=badge.render", "text=3/9", "msg=ws.send", "err=boom", "action=setTitle"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestInitRotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabcounter.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Truncate(path, maxFileSize+1); err != nil {
		t.Fatal(err)
	}

	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(Close)

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("expected rotated file: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 0 {
		t.Errorf("new log size = %d, want 0", info.Size())
	}
}

func TestDebugRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Close)

	SetDebug(false)
	Debug("schedule.fire", "policy", "normal")
	if buf.Len() != 0 {
		t.Errorf("debug line written while disabled: %s", buf.String())
	}

	SetDebug(true)
	t.Cleanup(func() { SetDebug(false) })
	Debug("schedule.fire", "policy", "normal")
	if !strings.Contains(buf.String(), "schedule.fire") {
		t.Errorf("debug line missing: %s", buf.String())
	}
}

func TestLongValuesTruncated(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf)
	t.Cleanup(Close)

	Info("ws.recv", "raw", strings.Repeat("x", 500))
	if strings.Contains(buf.String(), strings.Repeat("x", 201)) {
		t.Error("value was not truncated")
	}
	if !strings.Contains(buf.String(), truncSuffix) {
		t.Error("truncation suffix missing")
	}
}

func TestNoopWithoutInit(t *testing.T) {
	Close()
	Info("nothing")
	Error("nothing", errors.New("x"))
}
