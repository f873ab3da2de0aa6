package mission

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gwillem/linebot/pkg/linefollow"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/slots"
	"github.com/gwillem/linebot/pkg/storage"
)

const DefaultConfigFile = "linebot.json"

// Config holds everything a mission run needs.
type Config struct {
	Cage    robot.CageConfig  `json:"cage"`
	Follow  linefollow.Config `json:"follow"`
	Scan    slots.Geometry    `json:"scan"`
	Storage StorageConfig     `json:"storage"`
	Steps   []Step            `json:"steps"`
}

// StorageConfig says where finished scans go. Empty paths are skipped.
type StorageConfig struct {
	HistoryPath string `json:"history_path,omitempty"`
	BlobPath    string `json:"blob_path,omitempty"`
}

// Open returns the configured sinks and a function that closes them.
func (s StorageConfig) Open() (storage.Sinks, func() error, error) {
	var sinks storage.Sinks
	closeFn := func() error { return nil }

	if s.BlobPath != "" {
		sinks = append(sinks, storage.FileSink{Path: s.BlobPath})
	}
	if s.HistoryPath != "" {
		store, err := storage.OpenSQLite(s.HistoryPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closeFn = store.Close
	}
	return sinks, closeFn, nil
}

// DefaultConfig returns the competition settings and the standard run:
// follow to the slot row, line up, scan, pick up the first pair and lift.
func DefaultConfig() Config {
	return Config{
		Cage:   robot.DefaultCageConfig(),
		Follow: linefollow.DefaultConfig(),
		Scan:   slots.DefaultGeometry(),
		Storage: StorageConfig{
			HistoryPath: "linebot.db",
			BlobPath:    "scan.bin",
		},
		Steps: DefaultSteps(),
	}
}

// DefaultSteps returns the standard run.
func DefaultSteps() []Step {
	return []Step{
		{Op: OpCage, Cage: CageUp, Wait: true},
		{Op: OpFollow, Segment: linefollow.Segment{
			Junction: linefollow.JunctionSpec{Kind: linefollow.JunctionBoth, MinDistance: 400},
			Start:    50,
			Nudge:    true,
		}},
		{Op: OpHold, Distance: 150},
		{Op: OpLine, Distance: 80},
		{Op: OpScan},
		{Op: OpApproach, Distance: 16},
		{Op: OpCage, Cage: CageDown, Wait: true},
		{Op: OpReach, Reach: ReachNearest, Distance: 16},
		{Op: OpCage, Cage: CageUp, Wait: true},
		{Op: OpStraight, Distance: -120},
	}
}

// Validate checks every part of the config and the step order.
func (c *Config) Validate() error {
	if err := c.Follow.Validate(); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if len(c.Steps) == 0 {
		return errors.New("steps: mission has no steps")
	}
	onRow := false
	for i, s := range c.Steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
		switch {
		case s.Op == OpScan:
			onRow = true
		case s.Op.onSlotRow():
			if !onRow {
				return fmt.Errorf("step %d: %s must follow a scan with only approach, reach or cage steps between", i+1, s.Op)
			}
		case !s.Op.keepsPosition():
			onRow = false
		}
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Steps = nil
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Steps == nil {
		cfg.Steps = DefaultSteps()
	}
	return &cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	_, err := os.Stat(DefaultConfigFile)
	return err == nil
}
