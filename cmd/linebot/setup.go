package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/linebot/pkg/linefollow"
	"github.com/gwillem/linebot/pkg/mission"
	"github.com/gwillem/linebot/pkg/robot"
)

type SetupCommand struct {
	SkipCage bool `long:"skip-cage" description:"Only pick the speed profile"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("linebot setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !c.SkipCage {
		// Step 1: Find the cage servo
		candidate := scanForCage()

		// Step 2: Calibrate it
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating Cage ━━━"))
		fmt.Println()
		cfg.Cage.Port = candidate.port
		calibrateCage(&cfg.Cage, candidate)

		if err := cfg.SaveTo(opts.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	// Step 3: Speed profile
	fmt.Println()
	cfg.Follow.Speeds = chooseSpeedProfile(cfg.Follow.Speeds)

	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the mission with: " + headerStyle.Render("linebot run"))

	return nil
}

type servoCandidate struct {
	port  string
	servo feetech.FoundServo
}

func scanForCage() servoCandidate {
	fmt.Println("Scanning for the cage servo...")
	fmt.Println()

	candidates := findServos()
	if len(candidates) == 0 {
		fmt.Println("No Feetech servos found.")
		fmt.Println("Make sure the servo adapter is connected and powered on.")
		os.Exit(1)
	}

	fmt.Printf("Found %d servo(s). Let's identify the cage...\n\n", len(candidates))

	for _, candidate := range candidates {
		if identifyCageWithWiggle(candidate) {
			return candidate
		}
	}

	fmt.Println()
	fmt.Println("Cage servo not identified.")
	os.Exit(1)
	return servoCandidate{}
}

func findServos() []servoCandidate {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var candidates []servoCandidate
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := openBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, 6)
		cancel()
		bus.Close()
		if err != nil {
			continue
		}

		for _, s := range servos {
			fmt.Printf("  Found servo %d on %s\n", s.ID, port)
			candidates = append(candidates, servoCandidate{port: port, servo: s})
		}
	}
	return candidates
}

func openBus(port string) (*feetech.Bus, error) {
	return feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
}

func identifyCageWithWiggle(c servoCandidate) bool {
	bus, err := openBus(c.port)
	if err != nil {
		fmt.Printf("  Error opening %s: %v\n", c.port, err)
		return false
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, c.servo.ID, c.servo.Model)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling servo %d on %s...\n", c.servo.ID, c.port)

	wiggleAmount := 30
	for _, pos := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPosition(ctx, pos)
		time.Sleep(600 * time.Millisecond)
	}
	servo.Disable(ctx)

	isCage := false
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Did the cage just move (servo %d on %s)?", c.servo.ID, c.port)).
				Affirmative("Yes, that's the cage").
				Negative("No").
				Value(&isCage),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return isCage
}

func calibrateCage(cageConfig *robot.CageConfig, c servoCandidate) {
	fmt.Printf("Calibrating cage servo %d on %s\n", c.servo.ID, c.port)
	fmt.Println()

	bus, err := openBus(c.port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to servo: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, c.servo.ID, c.servo.Model)
	servo.Disable(ctx)

	waitForUser("Lower the cage until it rests on the mat. This is its home position.")
	home, err := servo.Position(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading position: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move the cage through its full range, both ends.")
	fmt.Println()

	model := newCalibrationModel(servo, home)
	finalModel, err := tea.NewProgram(model).Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}
	cm := finalModel.(calibrationModel)

	if cageConfig.Calibration == nil {
		cageConfig.Calibration = make(robot.Calibration)
	}
	cageConfig.Calibration[robot.CageMotor] = robot.MotorCalibration{
		ID:           c.servo.ID,
		HomingOffset: home,
		RangeMin:     cm.minPos,
		RangeMax:     cm.maxPos,
	}

	fmt.Println()
	fmt.Printf("Cage calibrated: home %d, range %d..%d\n", home, cm.minPos, cm.maxPos)
}

func chooseSpeedProfile(current linefollow.Speeds) linefollow.Speeds {
	var options []huh.Option[linefollow.Speeds]
	for _, p := range linefollow.SpeedProfiles() {
		options = append(options, huh.NewOption(p.String(), p.Speeds))
	}

	chosen := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[linefollow.Speeds]().
				Title("Speed profile").
				Description("Fast is used between start and stretch, slow elsewhere").
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return chosen
}

func waitForUser(prompt string) {
	fmt.Println(prompt)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
}

// Calibration TUI model
type calibrationModel struct {
	servo    *feetech.Servo
	home     int
	cur      int
	minPos   int
	maxPos   int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(servo *feetech.Servo, home int) calibrationModel {
	return calibrationModel{
		servo:  servo,
		home:   home,
		cur:    home,
		minPos: home,
		maxPos: home,
	}
}

func (m calibrationModel) Init() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if pos, err := m.servo.Position(context.Background()); err == nil {
			m.cur = pos
			m.minPos = min(m.minPos, pos)
			m.maxPos = max(m.maxPos, pos)
		}
		return m, tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
			return tickMsg(t)
		})
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	cal := robot.MotorCalibration{HomingOffset: m.home}
	rangeSize := m.maxPos - m.minPos

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Servo", "Current", "Degrees", "Min", "Max", "Range").
		Row(
			string(robot.CageMotor),
			fmt.Sprintf("%d", m.cur),
			fmt.Sprintf("%.1f°", cal.Degrees(m.cur)),
			fmt.Sprintf("%d", m.minPos),
			fmt.Sprintf("%d", m.maxPos),
			fmt.Sprintf("%d", rangeSize),
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 1, 2:
				return tableCurrentStyle
			case 5:
				// The up preset needs at least 145 degrees of travel.
				if float64(rangeSize) >= mission.DefaultConfig().Cage.Up/360*robot.StepsPerRevolution {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))
	return sb.String()
}
