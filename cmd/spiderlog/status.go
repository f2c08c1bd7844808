package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/spiderlog/internal/collection"
	"github.com/HendryAvila/spiderlog/internal/feeding"
)

// Status colors.
var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	hungryStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	feedTodayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Bold(true)
	notHungryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle      = lipgloss.NewStyle().Padding(0, 1)
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

func statusCommand(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which spiders need food",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Roster.Reload(cmd.Context()); err != nil {
				return err
			}
			now := timeNow()
			renderStatus(cmd.OutOrStdout(), app.Roster.Overview(now))
			if all {
				fmt.Fprintln(cmd.OutOrStdout())
				renderSpiders(cmd.OutOrStdout(), app.Roster.Spiders(), now)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Also list every spider")
	return cmd
}

// renderStatus prints the overview counts and the spiders that are due.
func renderStatus(w io.Writer, b collection.Badge) {
	fmt.Fprintln(w, titleStyle.Render("Feeding overview"))
	fmt.Fprintf(w, "  %s  %s  %s",
		hungryStyle.Render(fmt.Sprintf("%d hungry", b.Hungry)),
		feedTodayStyle.Render(fmt.Sprintf("%d feed today", b.FeedToday)),
		notHungryStyle.Render(fmt.Sprintf("%d not hungry", b.NotHungry)),
	)
	if b.Unknown > 0 {
		fmt.Fprintf(w, "  %s", mutedStyle.Render(fmt.Sprintf("%d without feeding data", b.Unknown)))
	}
	fmt.Fprintln(w)

	if len(b.Due) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  Nobody needs food."))
		return
	}
	fmt.Fprintln(w)
	rows := make([][]string, 0, len(b.Due))
	for _, sp := range b.Due {
		rows = append(rows, spiderRow(sp))
	}
	fmt.Fprintln(w, spiderTable(rows))
}

// renderSpiders prints every spider with its status as of now.
func renderSpiders(w io.Writer, spiders []collection.Spider, now time.Time) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Collection (%d)", len(spiders))))
	rows := make([][]string, 0, len(spiders))
	for _, sp := range spiders {
		sp.Status, _ = feeding.StatusAt(sp.LastFed, sp.FeedingFrequency, now)
		rows = append(rows, spiderRow(sp))
	}
	fmt.Fprintln(w, spiderTable(rows))
}

func spiderRow(sp collection.Spider) []string {
	name := sp.Name
	if sp.IsFavourite {
		name += " ★"
	}
	return []string{
		name,
		orDash(sp.SpeciesName),
		statusLabel(sp.Status),
		orDash(feeding.ToUI(sp.LastFed)),
		orDash(feeding.ToUI(sp.NextFeedingDate)),
		sp.ID,
	}
}

func spiderTable(rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Name", "Species", "Status", "Last fed", "Next feeding", "ID").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func statusLabel(st feeding.Status) string {
	switch st {
	case feeding.Hungry:
		return hungryStyle.Render("hungry")
	case feeding.FeedToday:
		return feedTodayStyle.Render("feed today")
	case feeding.NotHungry:
		return notHungryStyle.Render("not hungry")
	default:
		return mutedStyle.Render("-")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
