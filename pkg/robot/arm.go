package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm is a follower arm that takes positions in dataset units.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	useDegrees  bool
}

// NewArm opens the bus on port and groups the calibrated servos.
func NewArm(port string, cal Calibration, useDegrees bool) (*Arm, error) {
	if missing := cal.Missing(); len(missing) > 0 {
		return nil, fmt.Errorf("calibration has no entry for %v", missing)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.MotorIDs()...),
		calibration: cal,
		useDegrees:  useDegrees,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadPositions reads current positions from all motors in dataset units.
func (a *Arm) ReadPositions(ctx context.Context) (map[MotorName]float64, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	positions := make(map[MotorName]float64, len(raw))
	for id, pos := range raw {
		name, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		positions[name] = cal.Normalize(pos, DefaultNormMode(name, a.useDegrees))
	}
	return positions, nil
}

// WritePositions moves the motors to positions given in dataset units.
// Motors missing from positions keep their target.
func (a *Arm) WritePositions(ctx context.Context, positions map[MotorName]float64) error {
	raw := RawPositions(a.calibration, positions, a.useDegrees)
	if err := a.group.SetPositions(ctx, raw); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// RawPositions converts dataset positions to servo positions keyed by ID.
func RawPositions(cal Calibration, positions map[MotorName]float64, useDegrees bool) feetech.PositionMap {
	raw := make(feetech.PositionMap, len(positions))
	for name, norm := range positions {
		mc, ok := cal[name]
		if !ok {
			continue
		}
		raw[mc.ID] = mc.Denormalize(norm, DefaultNormMode(name, useDegrees))
	}
	return raw
}
