package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/allergy"
	"github.com/mealsub/mealsub-cli/internal/macros"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedule"
)

const dateLayout = "2006-01-02"

type slotView struct {
	Key       string      `json:"key"`
	Label     string      `json:"label"`
	Meal      models.Meal `json:"meal"`
	Safe      bool        `json:"safe"`
	Conflicts []string    `json:"conflicts,omitempty"`
}

// TodayResult is the output of the today command.
type TodayResult struct {
	Date      string        `json:"date"`
	WeekIndex int           `json:"weekIndex"`
	Day       string        `json:"day"`
	Delivery  bool          `json:"delivery"`
	Meals     []slotView    `json:"meals"`
	Totals    macros.Totals `json:"totals"`
	Goals     macros.Goals  `json:"goals"`
}

func newTodayCommand(opts *RootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the meals for a date",
		Long: `Show the meals scheduled for a date (default today), limited to the
subscribed days and meal types, with allergy conflicts and macro totals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToday(cmd, opts, date)
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	return cmd
}

func runToday(cmd *cobra.Command, opts *RootOptions, date string) error {
	now := opts.now()
	day := now
	if date != "" {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
		day = d
	}

	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	sub, err := rt.loadSubscriber(cmd.Context(), opts)
	if err != nil {
		return err
	}
	out := formatter(cmd, opts)

	res, err := buildToday(sub, now, day, rt.cfg.Goals)
	if err != nil {
		return err
	}
	out.VerboseLog("week %d, %s, %d visible slot(s)", res.WeekIndex, res.Day, len(res.Meals))
	return out.Success(res, func(w io.Writer) { renderToday(w, res) })
}

func buildToday(sub *subscriber, now, date time.Time, goals macros.Goals) (TodayResult, error) {
	ix := schedule.NewIndex(sub.sched)
	week, day, ok := ix.Locate(now, date)
	if !ok || week >= sub.session.HorizonWeeks {
		return TodayResult{}, NewExitError(ExitCommandError, fmt.Sprintf("%s is outside the schedule", date.Format(dateLayout)))
	}

	res := TodayResult{
		Date:      date.Format(dateLayout),
		WeekIndex: week,
		Day:       day,
		Delivery:  sub.session.Selected(day),
		Meals:     []slotView{},
		Goals:     goals,
	}
	visible := ix.Visible(week, day, sub.session.Filter())
	meals := make([]models.Meal, 0, len(visible))
	for _, key := range schedule.SortedKeys(visible) {
		meal := visible[key]
		check := allergy.IsSafe(meal, sub.session.Allergies)
		res.Meals = append(res.Meals, slotView{
			Key:       key,
			Label:     models.CategoryLabel(key),
			Meal:      meal,
			Safe:      check.Safe,
			Conflicts: check.Conflicts,
		})
		meals = append(meals, meal)
	}
	res.Totals = macros.AggregateMeals(meals)
	return res, nil
}

func renderToday(w io.Writer, res TodayResult) {
	title := strings.ToUpper(res.Day[:1]) + res.Day[1:]
	fmt.Fprintf(w, "%s %s (week %d)\n", title, res.Date, res.WeekIndex)
	if !res.Delivery {
		fmt.Fprintln(w, "  no delivery on this day")
		return
	}
	if len(res.Meals) == 0 {
		fmt.Fprintln(w, "  no meals scheduled")
		return
	}
	for _, m := range res.Meals {
		line := fmt.Sprintf("  %-10s %-32s %5.0f kcal", m.Label, m.Meal.Name, m.Meal.Calories)
		if !m.Safe {
			line += "  ! " + strings.Join(m.Conflicts, ", ")
		}
		fmt.Fprintln(w, line)
	}
	renderTotals(w, res.Totals, res.Goals)
}

func renderTotals(w io.Writer, t macros.Totals, g macros.Goals) {
	fmt.Fprintf(w, "  total      %.0f/%.0f kcal  protein %.0f/%.0fg  carbs %.0f/%.0fg  fat %.0f/%.0fg  fiber %.0f/%.0fg\n",
		t.Calories, g.Calories, t.Protein, g.Protein, t.Carbs, g.Carbs, t.Fat, g.Fat, t.Fiber, g.Fiber)
}
