// Package robot drives an SO-101 follower arm with positions taken from
// LeRobot datasets.
package robot

import "strings"

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// PositionSuffix is appended to motor names in dataset feature names.
const PositionSuffix = ".pos"

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
		Gripper,
	}
}

// MotorFromFeature maps a dataset name such as "shoulder_pan.pos" to its
// motor. Plain motor names are accepted too.
func MotorFromFeature(name string) (MotorName, bool) {
	m := MotorName(strings.TrimSuffix(name, PositionSuffix))
	for _, known := range AllMotors() {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// FeatureName is the dataset name of the motor's position.
func (m MotorName) FeatureName() string {
	return string(m) + PositionSuffix
}

// PositionsFromFeatures pairs the names of a dataset vector with its values,
// skipping entries that are not arm motors.
func PositionsFromFeatures(names []string, values []float64) map[MotorName]float64 {
	positions := make(map[MotorName]float64, len(names))
	for i, name := range names {
		if i >= len(values) {
			break
		}
		if m, ok := MotorFromFeature(name); ok {
			positions[m] = values[i]
		}
	}
	return positions
}
