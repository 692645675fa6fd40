// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/monbudget/monbudget/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5FAF5F")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#4ECDC4") // Teal
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#FFE66D") // Yellow
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B") // Red
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#95E1D3") // Light teal
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray
	// CreditColor indicates money coming in.
	CreditColor = lipgloss.Color("#5FAF5F") // Green
	// DebitColor indicates money going out.
	DebitColor = lipgloss.Color("#FF6B6B") // Red

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// CreditStyle formats credited amounts.
	CreditStyle = lipgloss.NewStyle().
			Foreground(CreditColor)

	// DebitStyle formats debited amounts.
	DebitStyle = lipgloss.NewStyle().
			Foreground(DebitColor)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	DisabledTag = "off"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return InfoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// FormatAmount renders a transaction amount with its sign and direction
// coloring: debits red with a leading minus, credits green with a plus.
func FormatAmount(amount decimal.Decimal, direction model.TransactionDirection) string {
	text := amount.StringFixed(2) + " €"
	if direction == model.DirectionDebit {
		return DebitStyle.Render("-" + text)
	}
	return CreditStyle.Render("+" + text)
}

// FormatRuleSummary renders a one-line description of a rule for list output.
func FormatRuleSummary(rule model.Rule) string {
	line := fmt.Sprintf("#%d [%d] %s %s %q", rule.ID, rule.Priority, rule.Name, rule.MatchMode, rule.Pattern)
	if !rule.Enabled {
		return SubtleStyle.Render(line + " (" + DisabledTag + ")")
	}
	return line
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	boxContent := lipgloss.JoinVertical(
		lipgloss.Left,
		boxTitle,
		content,
	)

	return BoxStyle.Render(boxContent)
}

// RenderApplyStats renders the outcome of a bulk rule application.
func RenderApplyStats(stats *model.BulkStats) string {
	lines := fmt.Sprintf(
		"Processed:  %d\nChanged:    %s\nUnchanged:  %d\nFailed:     %s",
		stats.Processed,
		SuccessStyle.Render(fmt.Sprintf("%d", stats.Changed)),
		stats.Unchanged,
		renderFailedCount(stats.Failed),
	)
	return RenderBox("Rules applied", lines)
}

func renderFailedCount(failed int) string {
	if failed > 0 {
		return ErrorStyle.Render(fmt.Sprintf("%d", failed))
	}
	return fmt.Sprintf("%d", failed)
}
