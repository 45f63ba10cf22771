package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mealsub/mealsub-cli/internal/allergy"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedsync"
	"github.com/mealsub/mealsub-cli/internal/schedule"
	"github.com/mealsub/mealsub-cli/internal/session"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

type swapModel struct {
	deps         Deps
	sync         *schedsync.Sync
	userID       models.ID
	sess         session.Session
	ix           *schedule.Index
	source       schedule.Slot
	sameCategory bool
	candidates   []schedule.Slot
	listIdx      int
	loading      bool
	err          string
	width        int
	height       int
}

type swapDoneMsg struct {
	sched *models.Schedule
	err   error
}

func newSwapModel(sm scheduleModel, slot schedule.Slot) swapModel {
	m := swapModel{
		deps:         sm.deps,
		sync:         sm.sync,
		userID:       sm.userID,
		sess:         sm.sess,
		ix:           sm.ix,
		source:       slot,
		sameCategory: sm.deps.Config.RequireSameCategory,
		width:        sm.width,
		height:       sm.height,
	}
	m.candidates = m.resolver().Candidates(swap.CoordinateOf(slot), m.sess.Filter())
	return m
}

func (m swapModel) resolver() *swap.Resolver {
	return swap.NewResolver(m.ix, swap.Options{RequireSameCategory: m.sameCategory})
}

func (m swapModel) apply(p swap.Payload) tea.Cmd {
	s := m.sync
	id := m.userID
	return func() tea.Msg {
		sched, err := s.ApplySwap(context.Background(), id, p)
		return swapDoneMsg{sched: sched, err: err}
	}
}

func (m swapModel) Update(msg tea.Msg) (swapModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case swapDoneMsg:
		m.loading = false
		switch {
		case errors.Is(msg.err, schedsync.ErrStale):
			return m, func() tea.Msg { return backToScheduleMsg{} }
		case msg.err != nil:
			m.err = msg.err.Error()
		default:
			sched := msg.sched
			return m, func() tea.Msg { return swappedMsg{sched: sched} }
		}

	case tea.KeyMsg:
		if m.loading {
			break
		}
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return backToScheduleMsg{} }
		case "j", "down":
			if m.listIdx < len(m.candidates)-1 {
				m.listIdx++
			}
		case "k", "up":
			if m.listIdx > 0 {
				m.listIdx--
			}
		case "c", "tab":
			m.sameCategory = !m.sameCategory
			m.candidates = m.resolver().Candidates(swap.CoordinateOf(m.source), m.sess.Filter())
			m.listIdx = 0
			m.err = ""
		case "enter":
			if m.listIdx >= len(m.candidates) {
				break
			}
			target := m.candidates[m.listIdx]
			p, err := m.resolver().Prepare(swap.CoordinateOf(m.source), swap.CoordinateOf(target))
			if err != nil {
				m.err = err.Error()
				break
			}
			m.loading = true
			m.err = ""
			return m, m.apply(p)
		}
	}
	return m, nil
}

func (m swapModel) View() string {
	var sb strings.Builder

	sb.WriteString(styleHeader.Render("Swap meal"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s  %s\n\n",
		styleDimmed.Render(slotLabel(m.source)),
		styleItemName.Render(m.source.Meal.Name)))

	anyTab, sameTab := styleTab, styleTabActive
	if !m.sameCategory {
		anyTab, sameTab = styleTabActive, styleTab
	}
	sb.WriteString(anyTab.Render("Any category") + sameTab.Render("Same category") + "\n\n")

	if m.loading {
		sb.WriteString(styleDimmed.Render("  Swapping...") + "\n")
		return sb.String()
	}
	if m.err != "" {
		sb.WriteString(styleError.Render("Error: "+m.err) + "\n\n")
	}

	if len(m.candidates) == 0 {
		sb.WriteString(styleDimmed.Render("  No meals to swap with") + "\n")
	}

	availW := m.width
	if availW < 40 {
		availW = 80
	}
	nameW := availW / 2

	// Keep the cursor visible in short terminals.
	visible := len(m.candidates)
	if m.height > 12 && visible > m.height-10 {
		visible = m.height - 10
	}
	start := 0
	if m.listIdx >= visible {
		start = m.listIdx - visible + 1
	}

	for i := start; i < len(m.candidates) && i < start+visible; i++ {
		c := m.candidates[i]
		name := c.Meal.Name
		if c.Meal.Premium() {
			name += " ★"
		}
		line := fmt.Sprintf("  %s %s %s",
			padRight(slotLabel(c), 24),
			padRight(truncate(name, nameW), nameW),
			styleKcal.Render(fmt.Sprintf("%.0f kcal", c.Meal.Calories)))
		if i == m.listIdx {
			line = styleSelected.Render(line)
		} else {
			line = styleItemName.Render(line)
		}
		if r := allergy.IsSafe(c.Meal, m.sess.Allergies); !r.Safe {
			line += "  " + styleWarn.Render("⚠ "+strings.Join(r.Conflicts, ", "))
		}
		sb.WriteString(line + "\n")
	}

	helpItems := []string{
		"[↑/↓] select",
		"[enter] swap",
		"[c] category",
		"[esc] back",
	}
	sb.WriteString(styleHelp.Render(strings.Join(helpItems, "  ")))

	return sb.String()
}

func slotLabel(s schedule.Slot) string {
	return fmt.Sprintf("W%d %s %s", s.WeekIndex, dayTitle(s.Day), models.CategoryLabel(s.MealKey))
}
