package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Layout of an experiment directory
const (
	ConfigFile     = "config.json"
	ModelFile      = "model.json"
	CheckpointsDir = "checkpoints"
	LogsDir        = "logs"
	GeneratedDir   = "generated"
)

// DefaultRoot holds auto-numbered experiments
const DefaultRoot = "experiments"

// CreateExperimentDir creates a new experiment directory with its
// checkpoints/ and logs/ subfolders. An explicit name must not exist yet;
// an empty name picks the next number under root (01, 02, ...).
func CreateExperimentDir(root, name string) (string, error) {
	dir := name
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return "", Fail(fmt.Sprintf("invalid experiment dir, %s already exists", dir))
		}
	} else {
		if err := os.MkdirAll(root, 0755); err != nil {
			return "", err
		}
		next, err := nextExperimentNumber(root)
		if err != nil {
			return "", err
		}
		dir = filepath.Join(root, fmt.Sprintf("%02d", next))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	for _, sub := range []string{CheckpointsDir, LogsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func nextExperimentNumber(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue // non-numeric folders are left alone
		}
		latest = max(latest, n)
	}
	return latest + 1, nil
}

// ResolveExperimentDir returns the experiment to load a model from. An empty
// name picks the most recently modified experiment under root. The result
// must contain model.json.
func ResolveExperimentDir(root, name string) (string, error) {
	dir := name
	if dir == "" {
		latest, err := latestExperiment(root)
		if err != nil {
			return "", err
		}
		dir = latest
	}

	if _, err := os.Stat(filepath.Join(dir, ModelFile)); err != nil {
		return "", Wrap(err, fmt.Sprintf("%s does not exist, are you sure %s is a valid experiment?",
			filepath.Join(dir, ModelFile), dir))
	}
	return dir, nil
}

func latestExperiment(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", Wrap(err, fmt.Sprintf("no experiments found in %s", root))
	}

	var latest string
	var latestMod int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = filepath.Join(root, entry.Name())
			latestMod = mod
		}
	}

	if latest == "" {
		return "", Fail(fmt.Sprintf("no experiments found in %s", root))
	}
	return latest, nil
}
