package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mealsub/mealsub-cli/internal/allergy"
	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/macros"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedsync"
	"github.com/mealsub/mealsub-cli/internal/schedule"
	"github.com/mealsub/mealsub-cli/internal/session"
)

type scheduleModel struct {
	deps     Deps
	sync     *schedsync.Sync
	userID   models.ID
	sess     session.Session
	sched    *models.Schedule
	ix       *schedule.Index
	date     time.Time
	selected int // index into the visible slots of date
	loading  bool
	err      string
	width    int
	height   int
}

type scheduleLoadedMsg struct {
	sess  session.Session
	sched *models.Schedule
	err   error
}

func newScheduleModel(d Deps, userID models.ID) scheduleModel {
	return scheduleModel{
		deps:   d,
		sync:   schedsync.New(d.Client, d.Config.Weeks, d.Logger),
		userID: userID,
		date:   d.Now(),
	}
}

func (m scheduleModel) load() tea.Cmd {
	s := m.sync
	client := m.deps.Client
	id := m.userID
	return func() tea.Msg {
		sess, sched, err := s.LoadSubscriber(context.Background(), client, id)
		return scheduleLoadedMsg{sess: sess, sched: sched, err: err}
	}
}

// withSchedule replaces the indexed schedule, keeping date and selection.
func (m scheduleModel) withSchedule(s *models.Schedule) scheduleModel {
	m.sched = s
	m.ix = schedule.NewIndex(s)
	m.loading = false
	m.err = ""
	m.clampSelection()
	return m
}

// horizon is the first and last navigable dates.
func (m scheduleModel) horizon() (time.Time, time.Time) {
	start := schedule.StartOfWeek(m.deps.Now())
	weeks := 1
	if m.ix != nil {
		weeks = min(m.ix.Weeks(), m.sess.HorizonWeeks)
	}
	if weeks < 1 {
		weeks = 1
	}
	return start, start.AddDate(0, 0, 7*weeks-1)
}

func (m scheduleModel) location() (int, string, bool) {
	if m.ix == nil {
		return 0, "", false
	}
	return m.ix.Locate(m.deps.Now(), m.date)
}

type visibleSlot struct {
	key   string
	meal  models.Meal
	check allergy.Result
}

func (m scheduleModel) visibleSlots() []visibleSlot {
	week, day, ok := m.location()
	if !ok {
		return nil
	}
	visible := m.ix.Visible(week, day, m.sess.Filter())
	out := make([]visibleSlot, 0, len(visible))
	for _, key := range schedule.SortedKeys(visible) {
		meal := visible[key]
		out = append(out, visibleSlot{key: key, meal: meal, check: allergy.IsSafe(meal, m.sess.Allergies)})
	}
	return out
}

func (m scheduleModel) selectedSlot() (schedule.Slot, bool) {
	slots := m.visibleSlots()
	if m.selected < 0 || m.selected >= len(slots) {
		return schedule.Slot{}, false
	}
	week, day, _ := m.location()
	s := slots[m.selected]
	return schedule.Slot{WeekIndex: week, Day: day, MealKey: s.key, Meal: s.meal}, true
}

func (m *scheduleModel) clampSelection() {
	n := len(m.visibleSlots())
	if m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func (m scheduleModel) moveDate(days int) scheduleModel {
	first, last := m.horizon()
	d := dateOnly(m.date).AddDate(0, 0, days)
	if d.Before(first) || d.After(last) {
		return m
	}
	m.date = d
	m.selected = 0
	return m
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (m scheduleModel) Update(msg tea.Msg) (scheduleModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case scheduleLoadedMsg:
		if errors.Is(msg.err, schedsync.ErrStale) {
			// A newer load is on its way.
			break
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err.Error()
			break
		}
		m.sess = msg.sess
		m = m.withSchedule(msg.sched)

	case tea.KeyMsg:
		if m.loading {
			break
		}
		switch msg.String() {
		case "left", "h":
			m = m.moveDate(-1)
		case "right", "l":
			m = m.moveDate(1)
		case "[":
			m = m.moveDate(-7)
		case "]":
			m = m.moveDate(7)
		case "t":
			m.date = m.deps.Now()
			m.selected = 0
		case "j", "down":
			if m.selected < len(m.visibleSlots())-1 {
				m.selected++
			}
		case "k", "up":
			if m.selected > 0 {
				m.selected--
			}
		case "r":
			m.loading = true
			m.err = ""
			return m, m.load()
		case "L":
			return m, func() tea.Msg { return logoutMsg{} }
		}
	}
	return m, nil
}

func (m scheduleModel) View() string {
	if m.loading {
		return "\n  Loading...\n"
	}

	var sb strings.Builder

	first, last := m.horizon()
	left, right := "←", "→"
	if !dateOnly(m.date).After(first) {
		left = styleDimmed.Render("←")
	}
	if !dateOnly(m.date).Before(last) {
		right = styleDimmed.Render("→")
	}
	week, day, ok := m.location()
	nav := fmt.Sprintf("%s %s %s", left, formatDate(m.date, m.deps.Now()), right)
	if ok {
		nav += styleDimmed.Render(fmt.Sprintf("  week %d", week))
	}
	sb.WriteString(styleDateNav.Render(nav))
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(styleError.Render("Error: "+m.err) + "\n\n")
	}

	switch {
	case m.ix == nil:
		sb.WriteString(styleDimmed.Render("  No schedule loaded") + "\n")
	case !ok:
		sb.WriteString(styleDimmed.Render("  Outside your schedule") + "\n")
	case !m.sess.Selected(day):
		sb.WriteString(styleDimmed.Render("  No delivery on "+dayTitle(day)) + "\n")
	default:
		slots := m.visibleSlots()
		meals := make([]models.Meal, 0, len(slots))
		for _, s := range slots {
			meals = append(meals, s.meal)
		}
		sb.WriteString(m.renderProgressBars(macros.AggregateMeals(meals)))
		sb.WriteString(m.renderSlots(slots))
	}

	if ok {
		sb.WriteString("\n")
		sb.WriteString(m.renderWeekChart(week, day))
	}

	helpItems := []string{
		"[←/→] day",
		"[ / ] week",
		"[↑/↓] select",
		"[s] swap",
		"[t] today",
		"[r] refresh",
		"[L] logout",
		"[q] quit",
	}
	sb.WriteString(styleHelp.Render(strings.Join(helpItems, "  ")))

	return sb.String()
}

func (m scheduleModel) renderSlots(slots []visibleSlot) string {
	var sb strings.Builder
	if len(slots) == 0 {
		sb.WriteString(styleDimmed.Render("  No meals scheduled") + "\n")
		return sb.String()
	}

	availW := m.width
	if availW < 40 {
		availW = 80
	}
	nameW := availW / 2

	for i, s := range slots {
		header := styleMealHeader.Render(fmt.Sprintf("%s  %s",
			models.CategoryLabel(s.key), styleKcal.Render(fmt.Sprintf("%.0f kcal", s.meal.Calories))))
		sb.WriteString(header + "\n")

		name := s.meal.Name
		if s.meal.Premium() {
			name += " ★"
		}
		macroStr := fmt.Sprintf("P:%.1fg C:%.1fg F:%.1fg Fi:%.1fg", s.meal.Protein, s.meal.Carbs, s.meal.Fat, s.meal.Fiber)
		line := fmt.Sprintf("  %s %s", padRight(truncate(name, nameW), nameW), styleDimmed.Render(macroStr))
		if i == m.selected {
			line = styleSelected.Render(line)
		} else {
			line = styleItemName.Render(line)
		}
		if !s.check.Safe {
			line += "  " + styleWarn.Render("⚠ "+strings.Join(s.check.Conflicts, ", "))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func (m scheduleModel) renderProgressBars(t macros.Totals) string {
	g := m.deps.Config.Goals.WithDefaults()
	barW := 30
	var sb strings.Builder
	sb.WriteString(renderBar("Calories", t.Calories, g.Calories, "kcal", colorCalories, barW))
	sb.WriteString(renderBar("Protein ", t.Protein, g.Protein, "g", colorProtein, barW))
	sb.WriteString(renderBar("Carbs   ", t.Carbs, g.Carbs, "g", colorCarbs, barW))
	sb.WriteString(renderBar("Fat     ", t.Fat, g.Fat, "g", colorFat, barW))
	sb.WriteString(renderBar("Fiber   ", t.Fiber, g.Fiber, "g", colorFiber, barW))
	return sb.String()
}

// renderWeekChart draws one calorie bar per subscribed day of the week.
func (m scheduleModel) renderWeekChart(week int, current string) string {
	if m.sched == nil || week >= len(m.sched.Weeks) {
		return ""
	}
	days, err := macros.AggregateWeek(schedule.FilterWeek(m.sched.Weeks[week], m.sess.Filter()), m.sess.SelectedDays)
	if err != nil {
		return styleError.Render("  "+err.Error()) + "\n"
	}
	goal := m.deps.Config.Goals.WithDefaults().Calories
	var sb strings.Builder
	for _, d := range days {
		code, _ := daykey.ToShortCode(d.Day)
		label := code
		if d.Day == current {
			label = styleSelected.Render(code)
		}
		filled := int(macros.Progress(d.Total.Calories, goal) * 20)
		bar := lipgloss.NewStyle().Foreground(colorCalories).Render(strings.Repeat("█", filled)) +
			lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("░", 20-filled))
		sb.WriteString(fmt.Sprintf("  %s %s %5.0f kcal\n", label, bar, d.Total.Calories))
	}
	return sb.String()
}

func renderBar(label string, current, goal float64, unit string, color lipgloss.Color, width int) string {
	filled := int(macros.Progress(current, goal) * float64(width))
	empty := width - filled

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(colorSubtle).Render(strings.Repeat("░", empty))

	nums := fmt.Sprintf("%.0f / %.0f %s", current, goal, unit)
	return fmt.Sprintf("  %s  [%s]  %s\n", label, bar, nums)
}

func dayTitle(day string) string {
	return cases.Title(language.English).String(day)
}

func formatDate(t, now time.Time) string {
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "Today"
	}
	tomorrow := now.AddDate(0, 0, 1)
	if t.Year() == tomorrow.Year() && t.YearDay() == tomorrow.YearDay() {
		return "Tomorrow"
	}
	return t.Format("Mon, Jan 2")
}
