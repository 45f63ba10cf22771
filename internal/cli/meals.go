package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mealsub/mealsub-cli/internal/allergy"
	"github.com/mealsub/mealsub-cli/internal/models"
)

// MealsResult is the output of the meals command.
type MealsResult struct {
	Meals     []models.Meal `json:"meals"`
	Excluded  int           `json:"excluded"`
	Allergies []string      `json:"allergies,omitempty"`
}

type mealsFlags struct {
	category string
	tags     []string
	limit    int
	offset   int
	all      bool
}

func newMealsCommand(opts *RootOptions) *cobra.Command {
	var f mealsFlags
	cmd := &cobra.Command{
		Use:   "meals",
		Short: "List the meal catalog",
		Long: `List meals from the catalog. When a user is known, meals that conflict
with the user's allergies are left out unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeals(cmd, opts, f)
		},
	}
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "breakfast, lunch, dinner or snacks")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "dietary tag, repeatable")
	cmd.Flags().IntVar(&f.limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "page offset")
	cmd.Flags().BoolVar(&f.all, "all", false, "do not filter by allergies")
	return cmd
}

func runMeals(cmd *cobra.Command, opts *RootOptions, f mealsFlags) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	var (
		meals []models.Meal
		user  *models.User
	)
	id, _ := rt.userID(opts)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		m, err := rt.client.ListMeals(ctx, models.MealQuery{
			Category:    strings.ToLower(f.category),
			DietaryTags: f.tags,
			Limit:       f.limit,
			Offset:      f.offset,
		})
		meals = m
		return err
	})
	if id != "" && !f.all {
		g.Go(func() error {
			u, err := rt.client.GetUser(ctx, id)
			user = u
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return classify("list meals", err)
	}

	res := MealsResult{Meals: meals}
	if user != nil {
		res.Meals = allergy.FilterMeals(meals, user.Allergies)
		res.Excluded = len(meals) - len(res.Meals)
		res.Allergies = user.Allergies
	}
	if res.Meals == nil {
		res.Meals = []models.Meal{}
	}
	return formatter(cmd, opts).Success(res, func(w io.Writer) { renderMeals(w, res) })
}

func renderMeals(w io.Writer, res MealsResult) {
	for _, m := range res.Meals {
		fmt.Fprintf(w, "%-6s %-10s %-32s %5.0f kcal  %s\n",
			m.ID, models.CategoryLabel(m.Category), m.Name, m.Calories, strings.Join(m.DietaryTags, ", "))
	}
	if res.Excluded > 0 {
		fmt.Fprintf(w, "%d meal(s) hidden for allergies: %s\n", res.Excluded, strings.Join(res.Allergies, ", "))
	}
}
