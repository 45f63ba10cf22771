package macros

import (
	"math"

	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/models"
)

// Totals are summed nutrition values.
type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
}

// Sums are kept in thousandths as integers so the result does not depend on
// the order meals are added in.
const scale = 1000

type fixed [5]int64

func toFixed(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Round(v * scale))
}

func (f fixed) totals() Totals {
	return Totals{
		Calories: float64(f[0]) / scale,
		Protein:  float64(f[1]) / scale,
		Carbs:    float64(f[2]) / scale,
		Fat:      float64(f[3]) / scale,
		Fiber:    float64(f[4]) / scale,
	}
}

func (f *fixed) add(m *models.Meal) {
	f[0] += toFixed(m.Calories)
	f[1] += toFixed(m.Protein)
	f[2] += toFixed(m.Carbs)
	f[3] += toFixed(m.Fat)
	f[4] += toFixed(m.Fiber)
}

// Aggregate sums the meals, skipping nil entries. NaN and infinite values
// count as zero.
func Aggregate(meals []*models.Meal) Totals {
	var f fixed
	for _, m := range meals {
		if m != nil {
			f.add(m)
		}
	}
	return f.totals()
}

// AggregateMeals is Aggregate for a value slice.
func AggregateMeals(meals []models.Meal) Totals {
	var f fixed
	for i := range meals {
		f.add(&meals[i])
	}
	return f.totals()
}

// Add returns t + o.
func (t Totals) Add(o Totals) Totals {
	f := fixed{
		toFixed(t.Calories) + toFixed(o.Calories),
		toFixed(t.Protein) + toFixed(o.Protein),
		toFixed(t.Carbs) + toFixed(o.Carbs),
		toFixed(t.Fat) + toFixed(o.Fat),
		toFixed(t.Fiber) + toFixed(o.Fiber),
	}
	return f.totals()
}

// AggregateDay sums one day's slots, limited to the given categories when any
// are given.
func AggregateDay(day models.Day, categories []string) Totals {
	var f fixed
	for key, meal := range day {
		if meal == nil || !inCategories(key, categories) {
			continue
		}
		f.add(meal)
	}
	return f.totals()
}

type DayTotal struct {
	Day   string `json:"day"`
	Total Totals `json:"total"`
}

// AggregateWeek returns one entry per selected day in Monday-first order.
// Selected days may use any day-key form; days without data total zero.
func AggregateWeek(week models.Week, selectedDays []string) ([]DayTotal, error) {
	days, err := daykey.NormalizeSet(selectedDays)
	if err != nil {
		return nil, err
	}
	byName := week.ByFullName()
	out := make([]DayTotal, 0, len(days))
	for _, name := range days {
		out = append(out, DayTotal{Day: name, Total: AggregateDay(byName[name], nil)})
	}
	return out, nil
}

// Goals are daily targets used for progress display.
type Goals struct {
	Calories float64 `yaml:"calories" json:"calories"`
	Protein  float64 `yaml:"protein" json:"protein"`
	Carbs    float64 `yaml:"carbs" json:"carbs"`
	Fat      float64 `yaml:"fat" json:"fat"`
	Fiber    float64 `yaml:"fiber" json:"fiber"`
}

// WithDefaults fills any zero goal with a generic daily target.
func (g Goals) WithDefaults() Goals {
	if g.Calories == 0 {
		g.Calories = 2000
	}
	if g.Protein == 0 {
		g.Protein = 150
	}
	if g.Carbs == 0 {
		g.Carbs = 250
	}
	if g.Fat == 0 {
		g.Fat = 65
	}
	if g.Fiber == 0 {
		g.Fiber = 30
	}
	return g
}

// Progress is current/goal clamped to [0, 1]. A non-positive goal gives 0.
func Progress(current, goal float64) float64 {
	if goal <= 0 || current <= 0 {
		return 0
	}
	return math.Min(current/goal, 1)
}

func inCategories(key string, categories []string) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if models.KeyInCategory(key, c) {
			return true
		}
	}
	return false
}
