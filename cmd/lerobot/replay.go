package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"go.uber.org/zap"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
	"github.com/gwillem/lerobot-inspect/pkg/replay"
	"github.com/gwillem/lerobot-inspect/pkg/robot"
)

type ReplayCommand struct {
	Episode     int      `short:"e" long:"episode" default:"0" description:"Episode to replay"`
	Speed       float64  `long:"speed" default:"1" description:"Playback speed multiplier"`
	Port        string   `long:"port" description:"Follower serial port (default from lerobot.json or auto-detected)"`
	Calibration string   `long:"calibration" description:"LeRobot calibration file of the follower"`
	Config      string   `long:"config" default:"lerobot.json" description:"Robot configuration file"`
	Degrees     bool     `long:"degrees" description:"Dataset joints are in degrees instead of -100..100"`
	Preview     bool     `long:"preview" description:"Plot the episode without moving the arm"`
	Args        repoArgs `positional-args:"yes" required:"yes"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.ShoulderPan:  "196", // red
	robot.ShoulderLift: "208", // orange
	robot.ElbowFlex:    "226", // yellow
	robot.WristFlex:    "46",  // green
	robot.WristRoll:    "51",  // cyan
	robot.Gripper:      "201", // magenta
}

var (
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type replayModel struct {
	ctrl     *replay.Controller
	repoID   string
	episode  int
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	frame    int
	done     bool
	quitting bool
}

func (m *replayModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the controller
type stateMsg replay.State
type logMsg string

func waitForState(ctrl *replay.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *replay.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *replayModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *replayModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

// chartRange fits the y axis to the recorded actions.
func chartRange(actions [][]float64) (lo, hi float64) {
	lo, hi = -100, 100
	for _, frame := range actions {
		for _, v := range frame {
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}
	return lo, hi
}

func newReplayModel(ctrl *replay.Controller, repoID string, episode int, lo, hi float64) replayModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(lo, hi),
	)

	// Set up data set styles for each motor
	for _, name := range ctrl.Motors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return replayModel{
		ctrl:    ctrl,
		repoID:  repoID,
		episode: episode,
		chart:   &chart,
	}
}

func (m replayModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m replayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := replay.State(msg)
		m.frame = state.Frame
		if state.Done {
			m.done = true
			return m, nil
		}
		for name, pos := range state.Positions {
			m.chart.PushDataSet(string(name), pos)
		}
		m.chart.DrawAll()
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m replayModel) View() string {
	if m.quitting {
		return "Replay stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(headerStyle.Render("LeRobot Replay"))
	sb.WriteString(fmt.Sprintf(" - %s episode %d - frame %d/%d at %.0f Hz", m.repoID, m.episode, m.frame+1, m.ctrl.Len(), m.ctrl.Hz()))
	if m.done {
		sb.WriteString("  " + successStyle.Render("done"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend(m.ctrl.Motors()))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(motors []robot.MotorName) string {
	var items []string
	for _, name := range motors {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

func (c *ReplayCommand) Execute(args []string) error {
	log := newLogger()
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := loadMetadata(ctx, c.Args.RepoID, log)
	if err != nil {
		fail("Error: %v", err)
	}
	ft, ok := meta.Features().Get(dataset.KeyAction)
	if !ok {
		fail("%s has no %q feature to replay", c.Args.RepoID, dataset.KeyAction)
	}

	ep, err := meta.LoadEpisode(ctx, c.Episode)
	if err != nil {
		fail("Error: %v", err)
	}
	actions, err := replay.Actions(ep, dataset.KeyAction)
	if err != nil {
		fail("Error: %v", err)
	}

	cfg := replay.Config{
		Names:   ft.Names.Values,
		Actions: actions,
		FPS:     meta.Info.FPS,
		Speed:   c.Speed,
		Logger:  log,
	}
	ctrl, err := replay.NewController(nil, cfg)
	if err != nil {
		fail("Error: %v", err)
	}
	if len(ctrl.Motors()) == 0 {
		fail("The action names of %s do not match SO-101 motors", c.Args.RepoID)
	}

	if !c.Preview {
		arm, err := c.openArm(ctx)
		if err != nil {
			fail("Error: %v", err)
		}
		defer arm.Close()

		if ctrl, err = replay.NewController(arm, cfg); err != nil {
			return err
		}
	}

	lo, hi := chartRange(actions)
	model := newReplayModel(ctrl, c.Args.RepoID, c.Episode, lo, hi)
	if err := runReplay(ctx, ctrl, model, log, tea.WithAltScreen()); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// runReplay shows the TUI until the user quits, then stops the controller
// and waits for it to release torque before returning.
func runReplay(ctx context.Context, ctrl *replay.Controller, model tea.Model, log *zap.Logger, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()

	_, err := tea.NewProgram(model, opts...).Run()
	cancel()
	if startErr := <-done; startErr != nil && !errors.Is(startErr, context.Canceled) {
		log.Error("replay failed", zap.Error(startErr))
	}
	return err
}

// openArm resolves the port and calibration from flags, lerobot.json and
// port discovery, in that order.
func (c *ReplayCommand) openArm(ctx context.Context) (*robot.Arm, error) {
	armCfg := robot.ArmConfig{Port: c.Port, CalibrationFile: c.Calibration}
	useDegrees := c.Degrees

	if cfg, err := robot.LoadConfigFrom(c.Config); err == nil {
		fmt.Printf("Loaded configuration from %s\n", c.Config)
		if armCfg.Port == "" {
			armCfg.Port = cfg.Follower.Port
		}
		if armCfg.CalibrationFile == "" {
			armCfg.CalibrationFile = cfg.Follower.CalibrationFile
			armCfg.Calibration = cfg.Follower.Calibration
		}
		useDegrees = useDegrees || cfg.UseDegrees
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if armCfg.Port == "" {
		ports, err := robot.FindArms(ctx)
		if err != nil {
			return nil, err
		}
		if len(ports) != 1 {
			return nil, fmt.Errorf("found %d SO-101 arms; pass --port", len(ports))
		}
		armCfg.Port = ports[0]
		fmt.Printf("Found SO-101 arm on %s\n", armCfg.Port)
	}

	if !armCfg.IsCalibrated() {
		return nil, errors.New("follower is not calibrated; pass --calibration or use --preview")
	}
	cal, err := armCfg.LoadCalibration()
	if err != nil {
		return nil, err
	}
	return robot.NewArm(armCfg.Port, cal, useDegrees)
}
