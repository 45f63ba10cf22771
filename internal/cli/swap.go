package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mealsub/mealsub-cli/internal/schedule"
	"github.com/mealsub/mealsub-cli/internal/swap"
)

// SwapResult is the output of the swap command.
type SwapResult struct {
	Payload swap.Payload `json:"payload"`
	Source  string       `json:"sourceNow"`
	Target  string       `json:"targetNow"`
}

func newSwapCommand(opts *RootOptions) *cobra.Command {
	var (
		from, to     string
		sameCategory bool
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap the meals in two slots",
		Long: `Swap the meals in two schedule slots. Slots are written week:day:mealKey,
for example 0:mon:dinner. The swap is checked locally before it is sent, and
the schedule is fetched again afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var same *bool
			if cmd.Flags().Changed("same-category") {
				same = &sameCategory
			}
			return runSwap(cmd, opts, from, to, same)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source slot week:day:mealKey")
	cmd.Flags().StringVar(&to, "to", "", "target slot week:day:mealKey")
	cmd.Flags().BoolVar(&sameCategory, "same-category", false, "reject swaps across meal categories (default from config)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runSwap(cmd *cobra.Command, opts *RootOptions, from, to string, sameCategory *bool) error {
	src, err := swap.ParseCoordinate(from)
	if err != nil {
		return classify("--from", err)
	}
	dst, err := swap.ParseCoordinate(to)
	if err != nil {
		return classify("--to", err)
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
	swapOpts := swap.Options{RequireSameCategory: rt.cfg.RequireSameCategory}
	if sameCategory != nil {
		swapOpts.RequireSameCategory = *sameCategory
	}

	payload, err := swap.NewResolver(schedule.NewIndex(sub.sched), swapOpts).Prepare(src, dst)
	if err != nil {
		return classify("swap rejected", err)
	}
	out := formatter(cmd, opts)
	out.VerboseLog("sending swap %s <-> %s", payload.SourceMeal, payload.TargetMeal)

	after, err := sub.sync.ApplySwap(cmd.Context(), sub.id, payload)
	if err != nil {
		return classify("swap failed", err)
	}

	ix := schedule.NewIndex(after)
	res := SwapResult{
		Payload: payload,
		Source:  mealNameAt(ix, payload.SourceMeal),
		Target:  mealNameAt(ix, payload.TargetMeal),
	}
	return out.Success(res, func(w io.Writer) {
		fmt.Fprintf(w, "Swapped %s and %s\n", payload.SourceMeal, payload.TargetMeal)
		fmt.Fprintf(w, "  %s now holds %s\n", payload.SourceMeal, res.Source)
		fmt.Fprintf(w, "  %s now holds %s\n", payload.TargetMeal, res.Target)
	})
}

func mealNameAt(ix *schedule.Index, c swap.Coordinate) string {
	slot, ok := ix.Slot(c.WeekIndex, c.DayKey, c.MealKey)
	if !ok {
		return "(empty)"
	}
	return slot.Meal.Name
}
