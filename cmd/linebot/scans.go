package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"

	"github.com/gwillem/linebot/pkg/storage"
)

type ScansCommand struct {
	Limit int `short:"n" long:"limit" default:"10" description:"Number of scans to show"`
}

func (c *ScansCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.HistoryPath == "" {
		return fmt.Errorf("no scan history configured in %s", opts.Config)
	}

	store, err := storage.OpenSQLite(cfg.Storage.HistoryPath)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(dimStyle.Render("No scans recorded yet."))
		return nil
	}

	rows := lo.Map(records, func(r storage.Record, _ int) []string {
		row := []string{r.ID[:min(8, len(r.ID))], r.At.Format("2006-01-02 15:04:05")}
		for _, v := range r.Intensities {
			row = append(row, fmt.Sprintf("%.0f", v))
		}
		window := "-"
		if r.Window >= 0 {
			window = strconv.Itoa(r.Window)
		}
		return append(row, window)
	})

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "Time", "S0", "S1", "S2", "S3", "S4", "S5", "Window").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Println(headerStyle.Render(fmt.Sprintf("Last %d scans", len(records))))
	fmt.Println(t.Render())
	return nil
}
