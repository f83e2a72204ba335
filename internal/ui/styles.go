package ui

import "github.com/charmbracelet/lipgloss/v2"

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	fileStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	itemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	moreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Italic(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
