package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/linebot/pkg/slots"
	"github.com/gwillem/linebot/pkg/storage"
)

type ResolveCommand struct {
	Blob string `long:"blob" description:"Read the intensities from a scan blob instead of the arguments"`

	Args struct {
		Intensities []float64 `positional-arg-name:"intensity" description:"Six slot intensities in physical order"`
	} `positional-args:"yes"`
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var classColors = map[slots.Class]string{
	slots.LowMarker:  "9",
	slots.Neutral:    "252",
	slots.HighMarker: "10",
}

func (c *ResolveCommand) Execute(args []string) error {
	values := c.Args.Intensities
	if c.Blob != "" {
		var err error
		values, err = storage.LoadBlob(c.Blob)
		if err != nil {
			return err
		}
	}
	if len(values) != slots.SlotCount {
		return fmt.Errorf("need %d intensities, got %d", slots.SlotCount, len(values))
	}

	metrics := make([]slots.Metric, len(values))
	for i, v := range values {
		metrics[i] = slots.Metric{Index: i, Intensity: v}
	}
	classes, err := slots.Classify(metrics)
	if err != nil {
		return err
	}

	fmt.Println(renderSlots(values, classes))
	fmt.Println()

	plan, err := slots.ResolveGrabs(classes)
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return err
	}
	fmt.Println(renderPlan(plan))
	return nil
}

func renderSlots(values []float64, classes []slots.Class) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{strconv.Itoa(i), fmt.Sprintf("%.1f", v), classes[i].String()}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Slot", "Intensity", "Class").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 2 && row >= 0 && row < len(classes) {
				return tableCellStyle.Foreground(lipgloss.Color(classColors[classes[row]]))
			}
			return tableCellStyle
		})
	return t.Render()
}

func renderPlan(plan slots.GrabPlan) string {
	return fmt.Sprintf("%s window %d\n  primary   %v (slots %v)\n  secondary %v",
		successStyle.Render("Grab plan:"),
		plan.Window,
		plan.Primary,
		plan.PrimarySlots(),
		plan.Secondary)
}
