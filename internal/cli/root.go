package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/tui"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	UserID  string

	now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the mealsub command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{now: time.Now})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	if opts.now == nil {
		opts.now = time.Now
	}
	cmd := &cobra.Command{
		Use:   "mealsub",
		Short: "Meal subscription schedule in the terminal",
		Long: `Browse and rearrange a meal-subscription schedule.

Without a subcommand the interactive view starts. Subcommands print the
same data as text or JSON for scripts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and diagnostics on stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.UserID, "user", "u", "", "user id (defaults to the saved login)")

	cmd.AddCommand(newTodayCommand(opts))
	cmd.AddCommand(newWeekCommand(opts))
	cmd.AddCommand(newSwapCommand(opts))
	cmd.AddCommand(newMealsCommand(opts))
	cmd.AddCommand(newUserCommand(opts))

	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	opts := &RootOptions{now: time.Now}
	cmd := newRootCommand(opts)
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: os.Stderr}
	out.Error(err)
	return GetExitCode(err)
}

func runTUI(opts *RootOptions) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	if opts.UserID != "" {
		rt.cfg.UserID = models.ID(opts.UserID)
	}
	p := tea.NewProgram(
		tui.New(tui.Deps{Client: rt.client, Config: rt.cfg, Logger: rt.log, Now: opts.now}),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "tui", err)
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
