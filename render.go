package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/list"

	"github.com/satanowski/tvfeed/internal/tvprogram"
)

// Styles
var styleChannel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EB9B19"))
var styleStart = lipgloss.NewStyle().Foreground(lipgloss.Color("#797979"))
var styleYear = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AD76E7"))
var styleExtra = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#3FC942"))
var styleNow = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E7821D"))

// renderSchedule lists a channel's shows, marking the one airing now.
func renderSchedule(channel string, shows []tvprogram.Show, current *tvprogram.Show) string {
	l := list.New()
	maxTitleLen := 0
	for _, show := range shows {
		maxTitleLen = max(maxTitleLen, len(show.Title))
	}
	styleTitle := lipgloss.NewStyle().Bold(true).Width(maxTitleLen + 1).Align(lipgloss.Left)

	for _, show := range shows {
		line := fmt.Sprintf("%s %s%s", styleStart.Render(show.Start), styleTitle.Render(show.Title), describe(show))
		if current != nil && show.StartsAt.Equal(current.StartsAt) && show.Title == current.Title {
			line = styleNow.Render("▶ ") + line
		}
		l.Item(line)
	}
	if len(shows) == 0 {
		l.Item("(no shows today)")
	}
	return styleChannel.Render(channel) + "\n" + l.String()
}

func describe(show tvprogram.Show) string {
	var extras []string
	if show.Year != nil {
		extras = append(extras, styleYear.Render(*show.Year))
	}
	if show.Season != nil && show.Episode != nil {
		extras = append(extras, styleExtra.Render(fmt.Sprintf("S%s E%s", *show.Season, *show.Episode)))
	}
	if show.Rating != nil {
		extras = append(extras, styleExtra.Render(*show.Rating))
	}
	if len(extras) == 0 {
		return ""
	}
	return " " + strings.Join(extras, " ")
}
