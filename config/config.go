package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go-melody/roll"
	"go-melody/window"
)

// Experiment is the training configuration persisted next to a model.
// Sampling reads it back so seeds are encoded exactly like the training windows.
type Experiment struct {
	WindowSize    int       `json:"windowSize"`
	BatchSize     int       `json:"batchSize"`
	FS            float64   `json:"fs"`
	UseInstrument bool      `json:"useInstrument"`
	IgnoreEmpty   bool      `json:"ignoreEmpty"`
	EncodeSection bool      `json:"encodeSection"`
	HiddenUnits   int       `json:"hiddenUnits"`
	LearningRate  float64   `json:"learningRate"`
	Momentum      float64   `json:"momentum"`
	MaxInRAM      int       `json:"maxInRam"`
	Created       time.Time `json:"created,omitempty"`
}

// DefaultExperiment returns a config with sensible defaults
func DefaultExperiment() *Experiment {
	return &Experiment{
		WindowSize:   20,
		BatchSize:    32,
		FS:           roll.DefaultFS,
		HiddenUnits:  64,
		LearningRate: 0.01,
		Momentum:     0.9,
		MaxInRAM:     170,
	}
}

// WindowOptions returns the window extraction options this experiment trains with
func (e *Experiment) WindowOptions() window.Options {
	return window.Options{
		Size:          e.WindowSize,
		UseInstrument: e.UseInstrument,
		IgnoreEmpty:   e.IgnoreEmpty,
		EncodeSection: e.EncodeSection,
	}
}

// Validate rejects configs that cannot drive window extraction
func (e *Experiment) Validate() error {
	switch {
	case e.WindowSize < 1:
		return Fail("window size must be at least 1")
	case e.BatchSize < 1:
		return Fail("batch size must be at least 1")
	case e.FS <= 0:
		return Fail("fs must be positive")
	case e.MaxInRAM < 1:
		return Fail("max in RAM must be at least 1")
	}
	return nil
}

// LoadExperiment reads config.json from an experiment directory, or returns
// defaults if the experiment predates config files
func LoadExperiment(dir string) (*Experiment, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultExperiment(), nil
		}
		return nil, err
	}

	cfg := DefaultExperiment()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, Wrap(err, "experiment config "+filepath.Join(dir, ConfigFile)+" is malformed")
	}
	return cfg, nil
}

// Save writes config.json into the experiment directory
func (e *Experiment) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if e.Created.IsZero() {
		e.Created = time.Now()
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ConfigFile), data, 0644)
}
