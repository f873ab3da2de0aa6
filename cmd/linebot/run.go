package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
	"github.com/gwillem/linebot/pkg/sim"
	"github.com/gwillem/linebot/pkg/slots"
)

type RunCommand struct {
	Hz       int  `long:"hz" description:"Control loop frequency (default: config hz, or 100 on the simulator)"`
	Hardware bool `long:"hardware" description:"Drive the real cage servo instead of the simulated one"`
	Headless bool `long:"headless" description:"Run without the TUI and print the log"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Series plotted while a line loop runs.
const (
	seriesLeft  = "left"
	seriesRight = "right"
	seriesTurn  = "turn"
)

var seriesColors = map[string]string{
	seriesLeft:  "196", // red
	seriesRight: "46",  // green
	seriesTurn:  "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	runner   *mission.Runner
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool

	step    int
	op      mission.Op
	plan    *slots.GrabPlan
	done    bool
	failure error
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// Messages from the runner
type stateMsg mission.State
type logMsg string

func waitForState(r *mission.Runner) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-r.States())
	}
}

func waitForLog(r *mission.Runner) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-r.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(r *mission.Runner) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-60, 100),
	)
	for _, name := range []string{seriesLeft, seriesRight, seriesTurn} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		runner: r,
		chart:  &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.runner),
		waitForLog(m.runner),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := mission.State(msg)
		m.step = state.Step
		m.op = state.Op
		if state.Tick != nil {
			m.chart.PushDataSet(seriesLeft, state.Tick.Sample.Left)
			m.chart.PushDataSet(seriesRight, state.Tick.Sample.Right)
			m.chart.PushDataSet(seriesTurn, state.Tick.Command.TurnRate)
			m.chart.DrawAll()
		}
		if state.Plan != nil {
			m.plan = state.Plan
		}
		if state.Done {
			m.done = true
			m.failure = state.Error
			return m, nil
		}
		return m, waitForState(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.runner)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Mission stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("linebot run"))
	total := len(m.runner.Steps())
	switch {
	case m.failure != nil:
		sb.WriteString(errorStyle.Render(fmt.Sprintf(" - failed at step %d/%d", m.step, total)))
	case m.done:
		sb.WriteString(successStyle.Render(" - complete"))
	case m.step > 0:
		sb.WriteString(fmt.Sprintf(" - step %d/%d: %s", m.step, total, m.op))
	}
	if m.plan != nil {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%s]", m.plan)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

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

func renderLegend() string {
	var items []string
	for _, name := range []string{seriesLeft, seriesRight, seriesTurn} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

// demoTrack lays out the default mission on a simulated mat: the junction
// line, the line in front of the slots and the slot row itself.
func demoTrack(g slots.Geometry) sim.Track {
	track := sim.DefaultTrack()
	track.Curve = 0.02
	track.Marks = []sim.Mark{
		sim.CrossLine(450, 20),
		sim.CrossLine(850, 20),
	}
	track.Slots = sim.SlotRow(850, g.Pitch, g.Width, []float64{120, 180, 95, 140, 40, 130})
	return track
}

// simHz paces the loop when neither the flag nor the config does.
const simHz = 100

// loopHz picks the control loop frequency: the --hz flag when given,
// otherwise the configured rate, otherwise simHz.
func loopHz(flagHz, configHz int) int {
	switch {
	case flagHz > 0:
		return flagHz
	case configHz > 0:
		return configHz
	default:
		return simHz
	}
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Follow.Hz = loopHz(c.Hz, cfg.Follow.Hz)

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	vehicle := sim.NewVehicle(demoTrack(cfg.Scan))
	vehicle.SetOffset(3)
	hw := mission.Hardware{
		Drive: vehicle,
		Left:  vehicle.Sensor(robot.LeftSensor),
		Right: vehicle.Sensor(robot.RightSensor),
		Side:  vehicle.Sensor(robot.SideSensor),
		Cage:  &sim.Cage{},
	}

	if c.Hardware {
		if cfg.Cage.Port == "" || !cfg.Cage.IsCalibrated() {
			fmt.Fprintln(os.Stderr, "Cage not configured. Run 'linebot setup' first.")
			os.Exit(1)
		}
		cage, err := robot.NewCage(cfg.Cage)
		if err != nil {
			return fmt.Errorf("open cage: %w", err)
		}
		defer cage.Close()
		if err := cage.Enable(context.Background()); err != nil {
			return fmt.Errorf("enable cage: %w", err)
		}
		defer cage.Disable(context.Background())
		hw.Cage = cage
	}

	sinks, closeSinks, err := cfg.Storage.Open()
	if err != nil {
		return err
	}
	defer closeSinks()

	runner, err := mission.NewRunner(hw, *cfg,
		mission.WithLogger(logger),
		mission.WithSink(sinks))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.Headless {
		return runHeadless(ctx, runner)
	}

	go func() {
		if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mission error", zap.Error(err))
		}
	}()

	p := tea.NewProgram(initialRunModel(runner), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// runHeadless prints the human log while the mission runs.
func runHeadless(ctx context.Context, runner *mission.Runner) error {
	done := make(chan error, 1)
	go func() {
		done <- runner.Start(ctx)
	}()

	for {
		select {
		case line := <-runner.Logs():
			fmt.Println(line)
		case err := <-done:
			for len(runner.Logs()) > 0 {
				fmt.Println(<-runner.Logs())
			}
			if plan, ok := runner.Plan(); ok {
				fmt.Println(renderPlan(plan))
			}
			return err
		}
	}
}
