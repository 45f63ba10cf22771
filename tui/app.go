package tui

import (
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mealsub/mealsub-cli/internal/api"
	"github.com/mealsub/mealsub-cli/internal/config"
	"github.com/mealsub/mealsub-cli/internal/models"
)

type page int

const (
	pageLogin    page = 0
	pageSchedule page = 1
	pageSwap     page = 2
)

// Deps are the collaborators every page shares.
type Deps struct {
	Client *api.Client
	Config config.Config
	Logger *slog.Logger
	Now    func() time.Time
}

type App struct {
	page     page
	login    loginModel
	schedule scheduleModel
	swap     swapModel
	deps     Deps
	width    int
	height   int
}

func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Client == nil {
		opts := d.Config.APIOptions()
		opts.Logger = d.Logger
		d.Client = api.New(opts)
	}

	a := &App{page: pageLogin, login: newLoginModel(d), deps: d}
	if d.Config.UserID != "" {
		a.schedule = newScheduleModel(d, d.Config.UserID)
		a.page = pageSchedule
	}
	return a
}

func (a *App) Init() tea.Cmd {
	if a.page == pageSchedule {
		a.schedule.loading = true
		return a.schedule.load()
	}
	return nil
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.login.width, a.login.height = msg.Width, msg.Height
		a.schedule.width, a.schedule.height = msg.Width, msg.Height
		a.swap.width, a.swap.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.page == pageSchedule && msg.String() == "q" {
			return a, tea.Quit
		}
		if a.page == pageSchedule && msg.String() == "s" && !a.schedule.loading {
			slot, ok := a.schedule.selectedSlot()
			if !ok {
				break
			}
			a.swap = newSwapModel(a.schedule, slot)
			a.swap.width, a.swap.height = a.width, a.height
			a.page = pageSwap
			return a, nil
		}

	case loginSuccessMsg:
		a.deps.Config.UserID = msg.user.ID
		a.deps.Config.Phone = msg.user.Phone
		a.schedule = newScheduleModel(a.deps, msg.user.ID)
		a.schedule.width, a.schedule.height = a.width, a.height
		a.schedule.loading = true
		a.page = pageSchedule
		return a, a.schedule.load()

	case backToScheduleMsg:
		a.page = pageSchedule
		return a, nil

	case swappedMsg:
		a.page = pageSchedule
		a.schedule = a.schedule.withSchedule(msg.sched)
		return a, nil

	case logoutMsg:
		if a.schedule.sync != nil {
			a.schedule.sync.Invalidate()
		}
		if err := config.Clear(); err != nil {
			a.deps.Logger.Warn("clearing saved login failed", "err", err)
		}
		a.deps.Config.UserID, a.deps.Config.Phone = "", ""
		a.schedule = scheduleModel{}
		a.page = pageLogin
		a.login = newLoginModel(a.deps)
		a.login.width, a.login.height = a.width, a.height
		return a, nil
	}

	switch a.page {
	case pageLogin:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		cmds = append(cmds, cmd)

	case pageSchedule:
		var cmd tea.Cmd
		a.schedule, cmd = a.schedule.Update(msg)
		cmds = append(cmds, cmd)

	case pageSwap:
		var cmd tea.Cmd
		a.swap, cmd = a.swap.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	switch a.page {
	case pageLogin:
		return a.login.View()
	case pageSchedule:
		return a.schedule.View()
	case pageSwap:
		return a.swap.View()
	}
	return ""
}

// Messages for page transitions.
type backToScheduleMsg struct{}
type swappedMsg struct{ sched *models.Schedule }
type logoutMsg struct{}
