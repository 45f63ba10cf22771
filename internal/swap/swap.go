// Package swap validates meal-slot swaps and builds the request body the
// backend expects. It performs no I/O.
package swap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedule"
)

// Coordinate identifies one slot and, optionally, the meal expected in it.
type Coordinate struct {
	WeekIndex int       `json:"weekIndex"`
	DayKey    string    `json:"dayKey"`
	MealKey   string    `json:"mealKey"`
	MealID    models.ID `json:"mealId"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d:%s:%s", c.WeekIndex, c.DayKey, c.MealKey)
}

// ParseCoordinate reads "week:day:mealKey". The day may use any day-key form.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("%w: %q, want week:day:mealKey", ErrInvalidCoordinate, s)
	}
	week, err := strconv.Atoi(parts[0])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: week %q", ErrInvalidCoordinate, parts[0])
	}
	return Coordinate{WeekIndex: week, DayKey: parts[1], MealKey: parts[2]}, nil
}

// CoordinateOf returns the coordinate of an indexed slot, meal id included.
func CoordinateOf(s schedule.Slot) Coordinate {
	return Coordinate{WeekIndex: s.WeekIndex, DayKey: s.Day, MealKey: s.MealKey, MealID: s.Meal.ID}
}

// Payload is the body of POST /schedule/swap-meals, minus the user id.
type Payload struct {
	SourceMeal Coordinate `json:"sourceMeal"`
	TargetMeal Coordinate `json:"targetMeal"`
}

// BuildPayload copies both coordinates into a payload as given.
func BuildPayload(source, target Coordinate) Payload {
	return Payload{SourceMeal: source, TargetMeal: target}
}

type Options struct {
	// RequireSameCategory rejects swaps between different meal categories.
	RequireSameCategory bool
}

// Resolver validates swaps against one indexed schedule.
type Resolver struct {
	ix   *schedule.Index
	opts Options
}

func NewResolver(ix *schedule.Index, opts Options) *Resolver {
	return &Resolver{ix: ix, opts: opts}
}

func (r *Resolver) normalize(c Coordinate) (Coordinate, error) {
	if c.WeekIndex < 0 || c.WeekIndex >= r.ix.Weeks() {
		return c, fmt.Errorf("%w: week %d out of range", ErrInvalidCoordinate, c.WeekIndex)
	}
	day, err := daykey.ToFullName(c.DayKey)
	if err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}
	key := strings.ToLower(strings.TrimSpace(c.MealKey))
	if key == "" {
		return c, fmt.Errorf("%w: empty meal key", ErrInvalidCoordinate)
	}
	c.DayKey, c.MealKey = day, key
	return c, nil
}

func (r *Resolver) resolve(c Coordinate) (schedule.Slot, error) {
	slot, ok := r.ix.Slot(c.WeekIndex, c.DayKey, c.MealKey)
	if !ok {
		return slot, fmt.Errorf("%w: %s", ErrEmptySlot, c)
	}
	if c.MealID != "" && c.MealID != slot.Meal.ID {
		return slot, fmt.Errorf("%w: %s holds %s, not %s", ErrStaleMeal, c, slot.Meal.ID, c.MealID)
	}
	return slot, nil
}

// Validate checks a swap and returns nil if it may be sent.
func (r *Resolver) Validate(source, target Coordinate) error {
	_, err := r.Prepare(source, target)
	return err
}

// Prepare validates a swap and returns the payload with day names and meal
// ids filled in from the schedule.
func (r *Resolver) Prepare(source, target Coordinate) (Payload, error) {
	src, err := r.normalize(source)
	if err != nil {
		return Payload{}, err
	}
	dst, err := r.normalize(target)
	if err != nil {
		return Payload{}, err
	}
	if src.WeekIndex == dst.WeekIndex && src.DayKey == dst.DayKey && src.MealKey == dst.MealKey {
		return Payload{}, ErrSameSlot
	}
	srcSlot, err := r.resolve(src)
	if err != nil {
		return Payload{}, err
	}
	dstSlot, err := r.resolve(dst)
	if err != nil {
		return Payload{}, err
	}
	if r.opts.RequireSameCategory && categoryOf(srcSlot) != categoryOf(dstSlot) {
		return Payload{}, fmt.Errorf("%w: %s vs %s", ErrCategoryMismatch, categoryOf(srcSlot), categoryOf(dstSlot))
	}
	return BuildPayload(CoordinateOf(srcSlot), CoordinateOf(dstSlot)), nil
}

// Candidates lists the slots a source slot could be swapped with, honouring
// the filter and the same-category option.
func (r *Resolver) Candidates(source Coordinate, f schedule.Filter) []schedule.Slot {
	src, err := r.normalize(source)
	if err != nil {
		return nil
	}
	srcSlot, ok := r.ix.Slot(src.WeekIndex, src.DayKey, src.MealKey)
	if !ok {
		return nil
	}
	var out []schedule.Slot
	for _, s := range r.ix.AllSlotsAcrossWeeks(f) {
		if s.WeekIndex == src.WeekIndex && s.Day == src.DayKey && s.MealKey == src.MealKey {
			continue
		}
		if r.opts.RequireSameCategory && categoryOf(s) != categoryOf(srcSlot) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// categoryOf prefers the meal's own category and falls back to the slot key.
func categoryOf(s schedule.Slot) string {
	if c := strings.ToLower(strings.TrimSpace(s.Meal.Category)); c != "" {
		return c
	}
	return s.Category()
}
