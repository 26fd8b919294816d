package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sarge/internal/model"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Width(11)
	valueStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	countdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	offlineStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#FF4D4F")).
			Bold(true).
			Padding(0, 1)
	toastStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	toastErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	panelStyle      = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))

	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FADB14")).Bold(true)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

func warningStyle(level model.WarningLevel) lipgloss.Style {
	switch level {
	case model.WarningGreen:
		return greenStyle
	case model.WarningRed:
		return redStyle
	default:
		return yellowStyle
	}
}
