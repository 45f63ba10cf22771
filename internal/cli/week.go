package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/macros"
	"github.com/mealsub/mealsub-cli/internal/schedule"
)

// WeekResult is the output of the week command.
type WeekResult struct {
	WeekIndex int               `json:"weekIndex"`
	StartDate string            `json:"startDate"`
	Days      []macros.DayTotal `json:"days"`
	Total     macros.Totals     `json:"total"`
}

func newWeekCommand(opts *RootOptions) *cobra.Command {
	var week int
	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show per-day macro totals for a week",
		Long: `Show the macro totals of every subscribed day in a schedule week,
Monday first. Week 0 is the current week.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWeek(cmd, opts, week)
		},
	}
	cmd.Flags().IntVarP(&week, "week", "w", 0, "week index, 0 is the current week")
	return cmd
}

func runWeek(cmd *cobra.Command, opts *RootOptions, week int) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	sub, err := rt.loadSubscriber(cmd.Context(), opts)
	if err != nil {
		return err
	}
	res, err := buildWeek(sub, week, opts)
	if err != nil {
		return err
	}
	return formatter(cmd, opts).Success(res, func(w io.Writer) { renderWeek(w, res) })
}

func buildWeek(sub *subscriber, week int, opts *RootOptions) (WeekResult, error) {
	if week < 0 || week >= len(sub.sched.Weeks) || week >= sub.session.HorizonWeeks {
		return WeekResult{}, NewExitError(ExitCommandError, fmt.Sprintf("week %d is outside the schedule", week))
	}
	days, err := macros.AggregateWeek(schedule.FilterWeek(sub.sched.Weeks[week], sub.session.Filter()), sub.session.SelectedDays)
	if err != nil {
		return WeekResult{}, classify("aggregate week", err)
	}
	res := WeekResult{
		WeekIndex: week,
		StartDate: schedule.StartOfWeek(opts.now()).AddDate(0, 0, 7*week).Format(dateLayout),
		Days:      days,
	}
	for _, d := range days {
		res.Total = res.Total.Add(d.Total)
	}
	return res, nil
}

func renderWeek(w io.Writer, res WeekResult) {
	fmt.Fprintf(w, "Week %d starting %s\n", res.WeekIndex, res.StartDate)
	for _, d := range res.Days {
		fmt.Fprintf(w, "  %-10s %6.0f kcal  protein %5.0fg  carbs %5.0fg  fat %5.0fg  fiber %4.0fg\n",
			d.Day, d.Total.Calories, d.Total.Protein, d.Total.Carbs, d.Total.Fat, d.Total.Fiber)
	}
	fmt.Fprintf(w, "  %-10s %6.0f kcal\n", "total", res.Total.Calories)
}
