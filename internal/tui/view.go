package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/sarge/internal/session"
)

// View implements tea.Model.
func (m *Model) View() string {
	body := m.renderDashboard()
	if m.modal != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", m.modal.view())
	}
	parts := []string{body}
	if line := m.renderToast(); line != "" {
		parts = append(parts, line)
	}
	parts = append(parts, m.help.View(m.keys))
	out := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if m.width == 0 || m.height == 0 {
		return out
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, out)
}

func (m *Model) renderDashboard() string {
	st := &m.state
	header := titleStyle.Render("SARGE")
	if st.Offline() {
		header += " " + offlineStyle.Render(offlineMessage)
	}

	rows := []string{
		m.row("Goal", m.goalText()),
		m.row("Timer", m.timerText()),
	}
	if _, ok := st.Countdown(); ok {
		rows = append(rows, m.row("", m.timerBar.ViewAs(st.TimerProgress())))
	}
	if st.Active() && !st.Completed() {
		rows = append(rows, m.row("Control", fmt.Sprintf("p %s · e end · E end early", st.PauseAction())))
	}
	rows = append(rows,
		m.row("Focus", fmt.Sprintf("%d min", st.Session().FocusMinutes)),
		m.row("Next", fmt.Sprintf("work %dm · break %dm", m.workMinutes, m.breakMinutes)),
		"",
		m.row("XP", m.xpText()),
		m.row("Rank", m.rankText()),
		m.row("", m.xpBar.ViewAs(st.RankProgress())),
		"",
		m.row("Judgment", m.judgmentText()),
		m.row("AI", m.aiText()),
		m.row("Screen", m.screenText()),
		m.row("Sergeant", m.personalityText()),
	)
	panel := panelStyle.Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, panel)
}

func (m *Model) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func (m *Model) goalText() string {
	goal := m.state.Session().Goal
	if goal == "" {
		return mutedStyle.Render("no goal set")
	}
	return valueStyle.Render(goal)
}

func (m *Model) timerText() string {
	st := &m.state
	if !st.Fetched(session.RecordTimer) {
		return mutedStyle.Render("waiting for timer…")
	}
	if st.Completed() {
		return countdownStyle.Render("Completed")
	}
	label := valueStyle.Render(st.PhaseLabel())
	if countdown, ok := st.Countdown(); ok {
		label += "  " + countdownStyle.Render(countdown)
	}
	return label
}

func (m *Model) xpText() string {
	if !m.state.Fetched(session.RecordXP) {
		return mutedStyle.Render("-")
	}
	xp := m.state.XP()
	return valueStyle.Render(fmt.Sprintf("%d total · %d this session", xp.TotalXP, xp.SessionXP))
}

func (m *Model) rankText() string {
	xp := m.state.XP()
	rank := xp.CurrentRank
	if rank == "" {
		rank = "-"
	}
	if xp.NextRankName == "" {
		return valueStyle.Render(rank)
	}
	return valueStyle.Render(rank) + mutedStyle.Render(fmt.Sprintf("  next %s in %d XP", xp.NextRankName, xp.XPToNextRank))
}

func (m *Model) judgmentText() string {
	j := m.state.Judgment()
	label := j.Raw
	if label == "" {
		label = j.Classification.String()
	}
	out := warningStyle(m.state.WarningLevel()).Render(strings.ToUpper(strings.ReplaceAll(label, "_", " ")))
	if j.Reason != "" {
		out += "  " + mutedStyle.Render(j.Reason)
	}
	return out
}

func (m *Model) aiText() string {
	if !m.state.Fetched(session.RecordAI) {
		return mutedStyle.Render("-")
	}
	ai := m.state.AI()
	return valueStyle.Render(ai.PrimaryBackend.String()) +
		mutedStyle.Render(fmt.Sprintf("  openai %s · ollama %s", mark(ai.OpenAIAvailable), mark(ai.OllamaAvailable)))
}

func (m *Model) screenText() string {
	sm := m.state.Screen()
	state := "off"
	if sm.Enabled {
		state = "on"
	}
	if !m.state.Fetched(session.RecordScreen) {
		return valueStyle.Render(state)
	}
	return valueStyle.Render(state) + mutedStyle.Render("  "+sm.Backend.String())
}

func (m *Model) personalityText() string {
	name := m.state.Session().Personality
	if name == "" {
		name = m.personality.Name
	}
	if name == "" {
		return mutedStyle.Render("-")
	}
	return valueStyle.Render(name)
}

func (m *Model) renderToast() string {
	if m.toast == "" {
		return ""
	}
	if m.toastError {
		return toastErrorStyle.Render(m.toast)
	}
	return toastStyle.Render(m.toast)
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
