package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lifeQuestClient/internal/progress"
	"lifeQuestClient/internal/types/achievement"
	"lifeQuestClient/services"
)

const (
	iconQuest  = "🗺️"
	iconDone   = "✅"
	iconTodo   = "⬜"
	iconTrophy = "🏆"
	iconBolt   = "⚡"
	iconInfo   = "ℹ️"
	iconWarn   = "⚠️"
	iconError  = "🧨"
	iconLock   = "🔒"
)

var (
	cPrimary = lipgloss.Color("63")
	cAccent  = lipgloss.Color("205")
	cGood    = lipgloss.Color("42")
	cWarn    = lipgloss.Color("214")
	cBad     = lipgloss.Color("196")
	cMuted   = lipgloss.Color("244")
	cGold    = lipgloss.Color("220")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	mutedStyle = lipgloss.NewStyle().Foreground(cMuted)
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	goodStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	goldStyle  = lipgloss.NewStyle().Bold(true).Foreground(cGold)

	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
)

var rarityStyles = map[achievement.Rarity]lipgloss.Style{
	achievement.RarityCommon:    mutedStyle,
	achievement.RarityRare:      keyStyle,
	achievement.RarityEpic:      titleStyle,
	achievement.RarityLegendary: goldStyle,
}

func heading(icon, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return titleStyle.Render(icon + title)
}

// bar renders a fixed-width progress bar for ratio in [0, 1].
func bar(ratio float64, width int) string {
	ratio = min(max(ratio, 0), 1)
	filled := int(ratio*float64(width) + 0.5)
	return goodStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func levelLine(totalXP int) string {
	return fmt.Sprintf("%s %s  %s %d/%d XP",
		goldStyle.Render(fmt.Sprintf("Lv %d", progress.DerivedLevel(totalXP))),
		bar(progress.LevelProgress(totalXP), 20),
		iconBolt,
		totalXP, progress.NextLevelThreshold(totalXP))
}

func checkbox(done bool) string {
	if done {
		return iconDone
	}
	return iconTodo
}

func formatNotification(n services.Notification) string {
	var style lipgloss.Style
	switch n.Type {
	case services.NotificationLevelUp:
		style = goldStyle
	case services.NotificationMutationFailed:
		style = badStyle
	default:
		style = goodStyle
	}
	line := style.Render(n.Title)
	if n.Body != "" {
		line += " " + mutedStyle.Render(n.Body)
	}
	return line
}
