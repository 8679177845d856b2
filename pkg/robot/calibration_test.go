package robot

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMotorCalibration_Normalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		raw      int
		expected float64
	}{
		{1000, -100.0}, // min -> -100
		{3000, 100.0},  // max -> 100
		{2000, 0.0},    // mid -> 0
		{1500, -50.0},  // quarter -> -50
		{2500, 50.0},   // three-quarter -> 50
	}

	for _, tt := range tests {
		got := cal.Normalize(tt.raw, NormRangeM100)
		if math.Abs(got-tt.expected) > 0.001 {
			t.Errorf("Normalize(%d) = %f, want %f", tt.raw, got, tt.expected)
		}
	}
}

func TestMotorCalibration_Denormalize(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 1000,
		RangeMax: 3000,
	}

	tests := []struct {
		norm     float64
		expected int
	}{
		{-100.0, 1000}, // -100 -> min
		{100.0, 3000},  // 100 -> max
		{0.0, 2000},    // 0 -> mid
		{-50.0, 1500},  // -50 -> quarter
		{50.0, 2500},   // 50 -> three-quarter
	}

	for _, tt := range tests {
		got := cal.Denormalize(tt.norm, NormRangeM100)
		if got != tt.expected {
			t.Errorf("Denormalize(%f) = %d, want %d", tt.norm, got, tt.expected)
		}
	}
}

func TestMotorCalibration_RoundTrip(t *testing.T) {
	cal := MotorCalibration{
		RangeMin: 823,
		RangeMax: 3540,
	}

	// Test round-trip: raw -> normalized -> raw
	for raw := cal.RangeMin; raw <= cal.RangeMax; raw += 100 {
		norm := cal.Normalize(raw, NormRangeM100)
		back := cal.Denormalize(norm, NormRangeM100)
		if math.Abs(float64(back-raw)) > 1 {
			t.Errorf("Round-trip failed: %d -> %f -> %d", raw, norm, back)
		}
	}
}

func TestCalibration_MotorIDs(t *testing.T) {
	cal := Calibration{
		ShoulderPan:  MotorCalibration{ID: 1},
		ShoulderLift: MotorCalibration{ID: 2},
		ElbowFlex:    MotorCalibration{ID: 3},
		WristFlex:    MotorCalibration{ID: 4},
		WristRoll:    MotorCalibration{ID: 5},
		Gripper:      MotorCalibration{ID: 6},
	}

	ids := cal.MotorIDs()
	expected := []int{1, 2, 3, 4, 5, 6}

	if len(ids) != len(expected) {
		t.Fatalf("MotorIDs returned %d IDs, want %d", len(ids), len(expected))
	}

	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("MotorIDs()[%d] = %d, want %d", i, id, expected[i])
		}
	}
}

func TestCalibration_ByID(t *testing.T) {
	cal := Calibration{
		ShoulderPan: MotorCalibration{ID: 1, RangeMin: 100, RangeMax: 200},
		Gripper:     MotorCalibration{ID: 6, RangeMin: 300, RangeMax: 400},
	}

	// Test finding existing ID
	name, mc, ok := cal.ByID(1)
	if !ok {
		t.Fatal("ByID(1) returned false")
	}
	if name != ShoulderPan {
		t.Errorf("ByID(1) returned name %s, want shoulder_pan", name)
	}
	if mc.RangeMin != 100 {
		t.Errorf("ByID(1) returned wrong calibration: %+v", mc)
	}

	// Test non-existing ID
	_, _, ok = cal.ByID(99)
	if ok {
		t.Error("ByID(99) should return false")
	}
}

func TestMotorCalibration_Modes(t *testing.T) {
	cal := MotorCalibration{RangeMin: 1000, RangeMax: 3000}
	inverted := MotorCalibration{RangeMin: 1000, RangeMax: 3000, DriveMode: 1}

	tests := []struct {
		name string
		cal  MotorCalibration
		mode NormMode
		raw  int
		want float64
	}{
		{"0-100 min", cal, NormRange0100, 1000, 0},
		{"0-100 max", cal, NormRange0100, 3000, 100},
		{"0-100 clipped", cal, NormRange0100, 3500, 100},
		{"0-100 inverted", inverted, NormRange0100, 1500, 75},
		{"m100 inverted", inverted, NormRangeM100, 1500, 50},
		{"m100 clipped", cal, NormRangeM100, 500, -100},
		{"degrees mid", cal, NormDegrees, 2000, 0},
		{"degrees quarter turn", cal, NormDegrees, 2000 + 1024, 1024 * 360.0 / 4095},
	}
	for _, tt := range tests {
		got := tt.cal.Normalize(tt.raw, tt.mode)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("%s: Normalize(%d) = %f, want %f", tt.name, tt.raw, got, tt.want)
		}
		if tt.name == "0-100 clipped" || tt.name == "m100 clipped" {
			continue
		}
		if back := tt.cal.Denormalize(got, tt.mode); back != tt.raw {
			t.Errorf("%s: Denormalize(%f) = %d, want %d", tt.name, got, back, tt.raw)
		}
	}
}

func TestDefaultNormMode(t *testing.T) {
	if got := DefaultNormMode(Gripper, true); got != NormRange0100 {
		t.Errorf("gripper mode = %q, want range_0_100", got)
	}
	if got := DefaultNormMode(ElbowFlex, true); got != NormDegrees {
		t.Errorf("elbow mode with degrees = %q", got)
	}
	if got := DefaultNormMode(ElbowFlex, false); got != NormRangeM100 {
		t.Errorf("elbow mode = %q", got)
	}
}

func TestParseNormMode(t *testing.T) {
	if m, err := ParseNormMode("degrees"); err != nil || m != NormDegrees {
		t.Errorf("ParseNormMode(degrees) = %q, %v", m, err)
	}
	if _, err := ParseNormMode("radians"); err == nil {
		t.Error("expected an error for radians")
	}
}

func TestLoadCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "follower.json")
	data := `{
  "shoulder_pan": {"id": 1, "drive_mode": 0, "homing_offset": -1470, "range_min": 758, "range_max": 3292},
  "gripper": {"id": 6, "drive_mode": 0, "homing_offset": 1407, "range_min": 2031, "range_max": 3476}
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if cal[ShoulderPan].HomingOffset != -1470 || cal[Gripper].RangeMax != 3476 {
		t.Errorf("calibration = %+v", cal)
	}

	missing := cal.Missing()
	want := []MotorName{ShoulderLift, ElbowFlex, WristFlex, WristRoll}
	if len(missing) != len(want) {
		t.Fatalf("Missing() = %v, want %v", missing, want)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Errorf("Missing()[%d] = %s, want %s", i, missing[i], want[i])
		}
	}
}

func TestRawPositions(t *testing.T) {
	cal := Calibration{
		ShoulderPan: MotorCalibration{ID: 1, RangeMin: 1000, RangeMax: 3000},
		Gripper:     MotorCalibration{ID: 6, RangeMin: 2000, RangeMax: 3000},
	}
	raw := RawPositions(cal, map[MotorName]float64{
		ShoulderPan: 50,
		Gripper:     10,
		ElbowFlex:   0,
	}, false)

	if len(raw) != 2 {
		t.Fatalf("RawPositions = %v, want two motors", raw)
	}
	if raw[1] != 2500 {
		t.Errorf("shoulder_pan raw = %d, want 2500", raw[1])
	}
	if raw[6] != 2100 {
		t.Errorf("gripper raw = %d, want 2100", raw[6])
	}
}
