package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Out: &buf})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer closer()

	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output at info level: %q", buf.String())
	}

	buf.Reset()
	logger, _, _ = New(Options{Out: &buf, Verbose: true})
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug record missing in verbose mode: %q", buf.String())
	}
}

func TestDebugFileIsTruncatedAndTeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("stale\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger, closer, err := New(Options{Out: &buf, DebugFile: path})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger.Debug("loading", "path", "a.mid")
	if err := closer(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale") {
		t.Fatalf("debug file was not truncated")
	}
	if !strings.Contains(string(data), "a.mid") || !strings.Contains(buf.String(), "a.mid") {
		t.Fatalf("record not written to both outputs")
	}
}
