package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateExperimentDirNumbersSequentially(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "notes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "07"), 0755); err != nil {
		t.Fatal(err)
	}

	dir, err := CreateExperimentDir(root, "")
	if err != nil {
		t.Fatalf("CreateExperimentDir() error: %v", err)
	}
	if want := filepath.Join(root, "08"); dir != want {
		t.Fatalf("dir = %q, want %q", dir, want)
	}
	for _, sub := range []string{CheckpointsDir, LogsDir} {
		if info, err := os.Stat(filepath.Join(dir, sub)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s subfolder: %v", sub, err)
		}
	}
}

func TestCreateExperimentDirRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateExperimentDir("unused", dir)
	if err == nil {
		t.Fatalf("expected error for existing dir")
	}
	if !IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestResolveExperimentDirPicksNewest(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(root, "01")
	recent := filepath.Join(root, "02")
	for _, d := range []string{old, recent} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(d, ModelFile), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := ResolveExperimentDir(root, "")
	if err != nil {
		t.Fatalf("ResolveExperimentDir() error: %v", err)
	}
	if got != recent {
		t.Fatalf("resolved %q, want %q", got, recent)
	}
}

func TestResolveExperimentDirRequiresModel(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveExperimentDir("unused", dir)
	if !IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestExperimentSaveLoad(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultExperiment()
	cfg.WindowSize = 8
	cfg.UseInstrument = true
	cfg.EncodeSection = true
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := LoadExperiment(dir)
	if err != nil {
		t.Fatalf("LoadExperiment() error: %v", err)
	}
	opts := got.WindowOptions()
	if opts.Size != 8 || !opts.UseInstrument || !opts.EncodeSection || opts.IgnoreEmpty {
		t.Fatalf("unexpected window options: %+v", opts)
	}
}

func TestLoadExperimentDefaultsWhenMissing(t *testing.T) {
	got, err := LoadExperiment(t.TempDir())
	if err != nil {
		t.Fatalf("LoadExperiment() error: %v", err)
	}
	if got.WindowSize != DefaultExperiment().WindowSize {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultExperiment()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.WindowSize = 0
	if err := cfg.Validate(); !IsConfig(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}
