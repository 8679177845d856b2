package robot

import (
	"encoding/json"
	"fmt"
	"os"
)

const DefaultConfigFile = "lerobot.json"

// Config holds the robot configuration
type Config struct {
	Follower   ArmConfig `json:"follower"`
	UseDegrees bool      `json:"use_degrees,omitempty"`
}

// ArmConfig holds configuration for a single arm. Calibration may be
// stored inline or in a LeRobot calibration file.
type ArmConfig struct {
	Port            string      `json:"port"`
	CalibrationFile string      `json:"calibration_file,omitempty"`
	Calibration     Calibration `json:"calibration,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0 || a.CalibrationFile != ""
}

// LoadCalibration returns the inline calibration, or reads the file.
func (a *ArmConfig) LoadCalibration() (Calibration, error) {
	if len(a.Calibration) > 0 {
		return a.Calibration, nil
	}
	if a.CalibrationFile == "" {
		return nil, fmt.Errorf("no calibration configured for %s", a.Port)
	}
	return LoadCalibration(a.CalibrationFile)
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
