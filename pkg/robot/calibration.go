package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// NormMode is how raw servo positions map to the values stored in datasets.
type NormMode string

const (
	// NormRangeM100 maps the calibrated range onto [-100, 100].
	NormRangeM100 NormMode = "range_m100_100"
	// NormRange0100 maps the calibrated range onto [0, 100]; used for the gripper.
	NormRange0100 NormMode = "range_0_100"
	// NormDegrees measures degrees from the middle of the calibrated range.
	NormDegrees NormMode = "degrees"
)

// maxResolution is the highest raw position of an STS3215 servo.
const maxResolution = 4095

// ParseNormMode validates a normalization mode name.
func ParseNormMode(s string) (NormMode, error) {
	switch m := NormMode(s); m {
	case NormRangeM100, NormRange0100, NormDegrees:
		return m, nil
	}
	return "", fmt.Errorf("unknown normalization mode %q", s)
}

// DefaultNormMode is the mode LeRobot uses for the SO-101 follower: the
// gripper is always 0-100, the joints are either degrees or -100..100.
func DefaultNormMode(name MotorName, useDegrees bool) NormMode {
	switch {
	case name == Gripper:
		return NormRange0100
	case useDegrees:
		return NormDegrees
	}
	return NormRangeM100
}

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// LoadCalibration loads a LeRobot calibration file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	var raw map[string]MotorCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, mc := range raw {
		cal[MotorName(name)] = mc
	}
	return cal, nil
}

// Normalize converts a raw servo position to the dataset value for mode.
func (c MotorCalibration) Normalize(raw int, mode NormMode) float64 {
	if mode == NormDegrees {
		mid := float64(c.RangeMin+c.RangeMax) / 2
		return (float64(raw) - mid) * 360 / maxResolution
	}

	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	bounded := min(max(raw, c.RangeMin), c.RangeMax)
	frac := float64(bounded-c.RangeMin) / rangeSize

	if mode == NormRange0100 {
		norm := frac * 100
		if c.DriveMode != 0 {
			norm = 100 - norm
		}
		return norm
	}
	norm := frac*200 - 100
	if c.DriveMode != 0 {
		norm = -norm
	}
	return norm
}

// Denormalize converts a dataset value back to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64, mode NormMode) int {
	if mode == NormDegrees {
		mid := float64(c.RangeMin+c.RangeMax) / 2
		return int(math.Round(norm*maxResolution/360 + mid))
	}

	rangeSize := float64(c.RangeMax - c.RangeMin)
	var frac float64
	if mode == NormRange0100 {
		if c.DriveMode != 0 {
			norm = 100 - norm
		}
		frac = math.Min(math.Max(norm, 0), 100) / 100
	} else {
		if c.DriveMode != 0 {
			norm = -norm
		}
		frac = (math.Min(math.Max(norm, -100), 100) + 100) / 200
	}
	return int(math.Round(frac*rangeSize)) + c.RangeMin
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}

// Missing lists the arm motors without calibration.
func (c Calibration) Missing() []MotorName {
	var missing []MotorName
	for _, name := range AllMotors() {
		if _, ok := c[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
