// Package replay plays the recorded actions of a dataset episode back on an
// arm, or in preview mode with no arm attached.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/robot"
)

// ErrRunning is returned by Start when the controller is already playing.
var ErrRunning = errors.New("already running")

// Actuator receives the positions of each frame.
type Actuator interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	WritePositions(ctx context.Context, positions map[robot.MotorName]float64) error
}

// State represents the playback position after a frame was sent.
type State struct {
	Frame     int
	Total     int
	Positions map[robot.MotorName]float64
	Timestamp time.Time
	Done      bool
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	// Names are the feature names of the action vector, e.g. "shoulder_pan.pos".
	Names   []string
	Actions [][]float64
	FPS     float64
	// Speed scales the playback rate; 1 is real time.
	Speed  float64
	Logger *zap.Logger
}

// Controller manages the replay loop.
type Controller struct {
	arm     Actuator
	names   []string
	actions [][]float64
	hz      float64
	logger  *zap.Logger

	mu      sync.Mutex
	running bool
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller that sends frames to arm. A nil arm
// previews the episode without moving anything.
func NewController(arm Actuator, cfg Config) (*Controller, error) {
	if len(cfg.Actions) == 0 {
		return nil, errors.New("episode has no action frames")
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps %v", cfg.FPS)
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Controller{
		arm:     arm,
		names:   cfg.Names,
		actions: cfg.Actions,
		hz:      cfg.FPS * cfg.Speed,
		logger:  cfg.Logger,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}, nil
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the playback frequency.
func (c *Controller) Hz() float64 {
	return c.hz
}

// Len is the number of frames to play.
func (c *Controller) Len() int {
	return len(c.actions)
}

// Motors lists the motors driven by the episode, in arm order.
func (c *Controller) Motors() []robot.MotorName {
	var out []robot.MotorName
	for _, m := range robot.AllMotors() {
		for _, name := range c.names {
			if got, ok := robot.MotorFromFeature(name); ok && got == m {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Debug(text)
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start plays every frame once. It returns nil when the episode is done and
// ctx.Err() when cancelled; torque is released either way.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()

	if c.arm != nil {
		if err := c.arm.Enable(ctx); err != nil {
			c.log("Warning: failed to enable arm: %v", err)
		} else {
			c.log("Arm: torque enabled")
		}
	} else {
		c.log("Preview mode: no arm attached")
	}
	c.log("Replaying %d frames at %.1f Hz", len(c.actions), c.hz)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / c.hz))
	defer ticker.Stop()

	for i := 0; i < len(c.actions); i++ {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx, i)
		}
	}

	c.sendState(State{Frame: len(c.actions) - 1, Total: len(c.actions), Timestamp: time.Now(), Done: true})
	c.shutdown()
	return nil
}

func (c *Controller) step(ctx context.Context, i int) {
	positions := robot.PositionsFromFeatures(c.names, c.actions[i])

	s := State{Frame: i, Total: len(c.actions), Positions: positions, Timestamp: time.Now()}
	if c.arm != nil {
		if err := c.arm.WritePositions(ctx, positions); err != nil {
			c.log("Write error at frame %d: %v", i, err)
			s.Error = err
		}
	}
	c.sendState(s)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if c.arm != nil {
		if err := c.arm.Disable(context.Background()); err != nil {
			c.log("Warning: failed to disable arm: %v", err)
		} else {
			c.log("Arm: torque disabled")
		}
	}
	c.log("Replay stopped")
}

// Actions reads the vector feature key of every frame of the episode.
func Actions(ep *dataset.Episode, key string) ([][]float64, error) {
	out := make([][]float64, 0, ep.Len())
	for i := 0; i < ep.Len(); i++ {
		fr, err := ep.Frame(i)
		if err != nil {
			return nil, err
		}
		t, ok := fr.Get(key)
		if !ok {
			return nil, fmt.Errorf("episode %d has no %q feature", ep.Index, key)
		}
		out = append(out, t.Data)
	}
	return out, nil
}
