// Package schedule resolves meals out of a fetched Schedule.
//
// An Index is built once per fetched schedule and never handed out by
// reference: every query returns fresh copies, so callers can hold results
// across a re-fetch without aliasing the new data.
package schedule

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/models"
)

// Slot is one (week, day, mealKey) coordinate together with the meal in it.
type Slot struct {
	WeekIndex int
	Day       string
	MealKey   string
	Meal      models.Meal
}

// Category is the category the slot key belongs to.
func (s Slot) Category() string {
	return models.CategoryOfKey(s.MealKey)
}

// Filter limits queries to a set of full day names and categories. An empty
// field matches everything.
type Filter struct {
	Days       []string
	Categories []string
}

func (f Filter) allowsDay(day string) bool {
	return len(f.Days) == 0 || containsFold(f.Days, day)
}

func (f Filter) allowsKey(key string) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, c := range f.Categories {
		if models.KeyInCategory(key, c) {
			return true
		}
	}
	return false
}

type Index struct {
	weeks []map[string]map[string]models.Meal
}

// NewIndex copies s into a queryable index. Empty slots are dropped; unknown
// day keys are ignored and aliases of one day are merged (see
// models.Week.ByFullName).
func NewIndex(s *models.Schedule) *Index {
	ix := &Index{}
	if s == nil {
		return ix
	}
	ix.weeks = make([]map[string]map[string]models.Meal, len(s.Weeks))
	for w, week := range s.Weeks {
		days := make(map[string]map[string]models.Meal, 7)
		for name, day := range week.ByFullName() {
			slots := make(map[string]models.Meal, len(day))
			for key, meal := range day {
				slots[key] = meal.Clone()
			}
			days[name] = slots
		}
		ix.weeks[w] = days
	}
	return ix
}

// Weeks is the number of weeks in the schedule.
func (ix *Index) Weeks() int {
	return len(ix.weeks)
}

func (ix *Index) day(week int, day string) map[string]models.Meal {
	if week < 0 || week >= len(ix.weeks) {
		return nil
	}
	return ix.weeks[week][strings.ToLower(day)]
}

// MealsFor returns every filled slot of a day. A missing week or day yields an
// empty map.
func (ix *Index) MealsFor(week int, day string) map[string]models.Meal {
	slots := ix.day(week, day)
	out := make(map[string]models.Meal, len(slots))
	for key, meal := range slots {
		out[key] = meal.Clone()
	}
	return out
}

// MealsForCategory returns the meals in slots named category or category_N,
// ordered by slot key.
func (ix *Index) MealsForCategory(week int, day, category string) []models.Meal {
	slots := ix.day(week, day)
	var out []models.Meal
	for _, key := range SortedKeys(slots) {
		if models.KeyInCategory(key, category) {
			out = append(out, slots[key].Clone())
		}
	}
	return out
}

// Visible applies subscription policy to one day: an unselected day yields an
// empty map, and slots outside the subscribed categories are dropped.
func (ix *Index) Visible(week int, day string, f Filter) map[string]models.Meal {
	out := map[string]models.Meal{}
	if !f.allowsDay(day) {
		return out
	}
	for key, meal := range ix.day(week, day) {
		if f.allowsKey(key) {
			out[key] = meal.Clone()
		}
	}
	return out
}

// Slot resolves a single coordinate.
func (ix *Index) Slot(week int, day, mealKey string) (Slot, bool) {
	name, err := daykey.ToFullName(day)
	if err != nil {
		return Slot{}, false
	}
	meal, ok := ix.day(week, name)[strings.ToLower(mealKey)]
	if !ok {
		return Slot{}, false
	}
	return Slot{WeekIndex: week, Day: name, MealKey: strings.ToLower(mealKey), Meal: meal.Clone()}, true
}

// AllSlotsAcrossWeeks lists every filled slot matching both the day and the
// category filter, ordered by week, then Monday-first day, then slot key.
func (ix *Index) AllSlotsAcrossWeeks(f Filter) []Slot {
	var out []Slot
	for w := range ix.weeks {
		for _, day := range daykey.WeekOrder {
			if !f.allowsDay(day) {
				continue
			}
			slots := ix.weeks[w][day]
			for _, key := range SortedKeys(slots) {
				if !f.allowsKey(key) {
					continue
				}
				out = append(out, Slot{WeekIndex: w, Day: day, MealKey: key, Meal: slots[key].Clone()})
			}
		}
	}
	return out
}

// FilterWeek returns a copy of w holding only the days and slots f allows.
// Day keys may use any day-key form and are merged under full names;
// unknown ones are dropped.
func FilterWeek(w models.Week, f Filter) models.Week {
	out := models.Week{WeekNumber: w.WeekNumber, StartDate: w.StartDate, Days: make(map[string]models.Day, len(w.Days))}
	for name, day := range w.ByFullName() {
		if !f.allowsDay(name) {
			continue
		}
		kept := models.Day{}
		for slot, meal := range day {
			if f.allowsKey(slot) {
				c := meal.Clone()
				kept[slot] = &c
			}
		}
		out.Days[name] = kept
	}
	return out
}

// Locate maps date onto the schedule, given that week 0 is the Monday-start
// week containing today. ok is false when the date falls outside the
// schedule.
func (ix *Index) Locate(today, date time.Time) (week int, day string, ok bool) {
	week = WeekOffset(today, date)
	day = daykey.FullNameOf(date)
	return week, day, week >= 0 && week < len(ix.weeks)
}

// WeekOffset is the number of Monday-start weeks between today's week and
// date's week. Dates before the current week are negative.
func WeekOffset(today, date time.Time) int {
	start := StartOfWeek(today)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(start).Hours() / 24)
	if days < 0 {
		return (days - 6) / 7
	}
	return days / 7
}

// StartOfWeek returns the UTC midnight of the Monday on or before t's
// calendar date.
func StartOfWeek(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	off := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -off)
}

// DateOf is the inverse of Locate.
func DateOf(today time.Time, week int, day string) (time.Time, error) {
	off, err := daykey.MondayOffset(day)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfWeek(today).AddDate(0, 0, week*7+off), nil
}

// SortedKeys returns slot keys in display order.
func SortedKeys(slots map[string]models.Meal) []string {
	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return slotKeyLess(keys[i], keys[j]) })
	return keys
}

// slotKeyLess orders by category position, then numeric suffix, so that
// lunch < lunch_2 < lunch_10 < dinner.
func slotKeyLess(a, b string) bool {
	ca, cb := models.CategoryOfKey(a), models.CategoryOfKey(b)
	if ca != cb {
		pa, pb := categoryRank(ca), categoryRank(cb)
		if pa != pb {
			return pa < pb
		}
		return ca < cb
	}
	na, nb := slotSuffix(a), slotSuffix(b)
	if na != nb {
		return na < nb
	}
	return a < b
}

func categoryRank(c string) int {
	for i, cat := range models.Categories {
		if c == cat {
			return i
		}
	}
	return len(models.Categories)
}

func slotSuffix(key string) int {
	i := strings.IndexByte(key, '_')
	if i < 0 {
		return 1
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return 1 << 30
	}
	return n
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
