package robot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// BaudRate is the bus speed of SO-101 servos.
const BaudRate = 1_000_000

// FindArms returns the serial ports that answer with the six servos of an
// SO-101 arm.
func FindArms(ctx context.Context) ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	var found []string
	for _, port := range CandidatePorts(ports) {
		servos, err := scan(ctx, port)
		if err != nil {
			continue
		}
		if IsSOArm(servos) {
			found = append(found, port)
		}
	}
	return found, nil
}

// CandidatePorts drops ports that cannot host a servo bus.
func CandidatePorts(ports []string) []string {
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out
}

func scan(ctx context.Context, port string) ([]feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	// Scan for servos with IDs 1-6 (SO-101 arm configuration)
	return bus.Scan(ctx, 1, 6)
}

// IsSOArm reports whether the servos are exactly IDs 1 through 6.
func IsSOArm(servos []feetech.FoundServo) bool {
	if len(servos) != 6 {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= 6; i++ {
		if !ids[i] {
			return false
		}
	}
	return true
}
