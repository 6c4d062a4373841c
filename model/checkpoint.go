package model

import (
	"fmt"
	"os"
	"path/filepath"

	deep "github.com/patrikeh/go-deep"

	"go-melody/config"
)

// CheckpointPath returns the weights file for an epoch
func CheckpointPath(dir string, epoch int) string {
	return filepath.Join(dir, config.CheckpointsDir, fmt.Sprintf("weights-%03d.json", epoch))
}

// SaveCheckpoint writes the current weights for epoch
func (f *FeedForward) SaveCheckpoint(dir string, epoch int) error {
	data, err := f.net.Marshal()
	if err != nil {
		return err
	}
	path := CheckpointPath(dir, epoch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCheckpoint replaces the weights with the ones stored at path
func (f *FeedForward) LoadCheckpoint(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	net, err := deep.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", path, err)
	}
	if net.Config.Inputs != f.Spec.Inputs() {
		return fmt.Errorf("checkpoint %s takes %d inputs, model %d", path, net.Config.Inputs, f.Spec.Inputs())
	}
	f.net = net
	return nil
}

// LoadLatest loads the model in dir with its newest checkpoint applied and
// returns the checkpoint's epoch (0 when there is none)
func LoadLatest(dir string) (*FeedForward, int, error) {
	f, err := Load(dir)
	if err != nil {
		return nil, 0, err
	}

	path, epoch, err := latestCheckpoint(dir)
	if err != nil || path == "" {
		return f, 0, err
	}
	if err := f.LoadCheckpoint(path); err != nil {
		return nil, 0, err
	}
	return f, epoch, nil
}

// latestCheckpoint picks the most recently written weights file; ties go to
// the higher epoch
func latestCheckpoint(dir string) (string, int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, config.CheckpointsDir, "weights-*.json"))
	if err != nil {
		return "", 0, err
	}

	var (
		best      string
		bestEpoch int
		bestInfo  os.FileInfo
	)
	for _, m := range matches {
		var epoch int
		if _, err := fmt.Sscanf(filepath.Base(m), "weights-%d.json", &epoch); err != nil {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		newer := bestInfo == nil ||
			info.ModTime().After(bestInfo.ModTime()) ||
			(info.ModTime().Equal(bestInfo.ModTime()) && epoch > bestEpoch)
		if newer {
			best, bestEpoch, bestInfo = m, epoch, info
		}
	}
	return best, bestEpoch, nil
}
