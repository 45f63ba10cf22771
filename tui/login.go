package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/config"
	"github.com/mealsub/mealsub-cli/internal/models"
)

type loginModel struct {
	deps    Deps
	phone   textinput.Model
	err     string
	loading bool
	width   int
	height  int
}

type loginSuccessMsg struct{ user models.User }
type loginErrMsg struct{ err string }

func newLoginModel(d Deps) loginModel {
	phone := textinput.New()
	phone.Placeholder = "+1 555 0100"
	phone.Focus()
	phone.CharLimit = 32
	phone.Width = 40
	if d.Config.Phone != "" {
		phone.SetValue(d.Config.Phone)
	}
	return loginModel{deps: d, phone: phone}
}

// normalizePhone keeps digits and a leading plus.
func normalizePhone(s string) string {
	var sb strings.Builder
	for i, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' || r == '+' && i == 0 {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func doLookup(d Deps, phone string) tea.Cmd {
	return func() tea.Msg {
		u, err := d.Client.GetUserByPhone(context.Background(), phone)
		if errors.Is(err, api.ErrNotFound) {
			return loginErrMsg{err: "No subscription found for " + phone}
		}
		if err != nil {
			return loginErrMsg{err: err.Error()}
		}
		if err := config.SaveSession(u.ID, phone); err != nil {
			return loginErrMsg{err: "found subscription but failed to write config: " + err.Error()}
		}
		d.Logger.Info("logged in", "user", u.ID)
		if u.Phone == "" {
			u.Phone = phone
		}
		return loginSuccessMsg{user: *u}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case loginErrMsg:
		m.loading = false
		m.err = msg.err

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		if msg.String() == "enter" {
			phone := normalizePhone(m.phone.Value())
			if len(strings.TrimPrefix(phone, "+")) < 5 {
				m.err = "Enter the phone number of your subscription"
				break
			}
			m.loading = true
			m.err = ""
			cmds = append(cmds, doLookup(m.deps, phone))
		}
	}

	var cmd tea.Cmd
	m.phone, cmd = m.phone.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m loginModel) View() string {
	logo := styleHeader.Render("MEALSUB")
	subtitle := styleDimmed.Render("Your meal plan in the terminal")

	form := lipgloss.JoinVertical(lipgloss.Left,
		styleSelected.Render("> Phone"),
		styleInput.Width(m.phone.Width).Render(m.phone.View()),
	)

	var status string
	if m.loading {
		status = styleDimmed.Render("Looking up subscription...")
	} else if m.err != "" {
		status = styleError.Render("✗ " + m.err)
	} else {
		status = styleDimmed.Render("Press Enter to continue • Ctrl+C to quit")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		logo,
		subtitle,
		"",
		form,
		"",
		status,
	)

	box := styleBorder.Render(content)

	if m.width > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return fmt.Sprintf("\n%s\n", strings.TrimSpace(box))
}
