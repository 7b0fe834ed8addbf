package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	hintStyle      = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().Width(10).Foreground(lipgloss.Color("250"))

	transcriptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	dotWait = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("●")
	dotOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
	dotErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("●")
)

// statusDot 与网页版一致：等待为黄色，成功绿色，失败红色
func statusDot(s session.Status) string {
	switch s {
	case session.StatusOK:
		return dotOK
	case session.StatusError:
		return dotErr
	default:
		return dotWait
	}
}
