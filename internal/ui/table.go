package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/lightify/internal/protocol"
	"github.com/muurk/lightify/internal/store"
)

// newTable returns a table in the CLI's border and cell styles.
func newTable(width int, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(PrimaryColor)).
		Width(width).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

// RenderGroups renders cached groups with their member counts. lights is
// used to mark a group on when any of its members is on.
func RenderGroups(groups []store.Group, lights []store.Light, width int) string {
	on := make(map[uint64]bool, len(lights))
	for _, l := range lights {
		on[l.Address] = l.On
	}

	t := newTable(width, "ID", "Name", "Members", "Power")
	for _, g := range groups {
		lit := false
		for _, m := range g.Members {
			if on[m] {
				lit = true
				break
			}
		}
		t.Row(strconv.Itoa(int(g.ID)), g.Name, strconv.Itoa(len(g.Members)), RenderPower(lit))
	}
	return t.Render()
}

// RenderLights renders cached lights with their last known state.
func RenderLights(lights []store.Light, width int) string {
	t := newTable(width, "Address", "Name", "Power", "Lum", "Temp", "RGB")
	for _, l := range lights {
		t.Row(
			protocol.FormatAddress(l.Address),
			l.Name,
			RenderPower(l.On),
			fmt.Sprintf("%d%%", l.Luminance),
			fmt.Sprintf("%dK", l.Temperature),
			fmt.Sprintf("%d,%d,%d", l.R, l.G, l.B),
		)
	}
	return t.Render()
}

// LightDetails returns the fields of one light for a result box.
func LightDetails(l store.Light) []Param {
	return []Param{
		{Key: "Address", Value: protocol.FormatAddress(l.Address)},
		{Key: "Name", Value: l.Name},
		{Key: "Power", Value: RenderPower(l.On)},
		{Key: "Luminance", Value: fmt.Sprintf("%d%%", l.Luminance)},
		{Key: "Temperature", Value: fmt.Sprintf("%dK", l.Temperature)},
		{Key: "Colour", Value: fmt.Sprintf("%d,%d,%d", l.R, l.G, l.B)},
	}
}
