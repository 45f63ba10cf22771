// Package session holds the per-user state the core needs, passed
// explicitly instead of read from ambient storage.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/models"
	"github.com/mealsub/mealsub-cli/internal/schedule"
)

var (
	ErrNoUser      = errors.New("session has no user id")
	ErrNoDays      = errors.New("subscription has no selected days")
	ErrNoMealTypes = errors.New("subscription has no meal types")
	ErrBadMealType = errors.New("unknown meal type")
)

type Session struct {
	UserID       models.ID
	SelectedDays []string // full day names, Monday first
	MealTypes    []string // categories
	Allergies    []string
	Plan         string
	HorizonWeeks int
}

// FromUser validates a user's subscription and converts it to a Session.
// Unknown day keys are an error; they are never guessed.
func FromUser(u models.User) (Session, error) {
	if u.ID == "" {
		return Session{}, ErrNoUser
	}
	if len(u.SelectedDays) == 0 {
		return Session{}, ErrNoDays
	}
	days, err := daykey.NormalizeSet(u.SelectedDays)
	if err != nil {
		return Session{}, fmt.Errorf("selected days: %w", err)
	}
	if len(u.MealTypes) == 0 {
		return Session{}, ErrNoMealTypes
	}
	types, err := normalizeMealTypes(u.MealTypes)
	if err != nil {
		return Session{}, err
	}
	return Session{
		UserID:       u.ID,
		SelectedDays: days,
		MealTypes:    types,
		Allergies:    append([]string(nil), u.Allergies...),
		Plan:         u.Plan,
		HorizonWeeks: u.HorizonWeeks(),
	}, nil
}

func normalizeMealTypes(in []string) ([]string, error) {
	seen := map[string]bool{}
	for _, t := range in {
		c := strings.ToLower(strings.TrimSpace(t))
		if c == "snack" {
			c = models.Snacks
		}
		known := false
		for _, cat := range models.Categories {
			if c == cat {
				known = true
				break
			}
		}
		if !known {
			return nil, fmt.Errorf("%w: %q", ErrBadMealType, t)
		}
		seen[c] = true
	}
	var out []string
	for _, cat := range models.Categories {
		if seen[cat] {
			out = append(out, cat)
		}
	}
	return out, nil
}

// Filter is the schedule filter for the subscription.
func (s Session) Filter() schedule.Filter {
	return schedule.Filter{Days: s.SelectedDays, Categories: s.MealTypes}
}

// HasAllergies reports whether any real allergy tag is set.
func (s Session) HasAllergies() bool {
	for _, a := range s.Allergies {
		if a = strings.TrimSpace(a); a != "" && !strings.EqualFold(a, models.NoAllergies) {
			return true
		}
	}
	return false
}

// Selected reports whether the full day name is part of the subscription.
func (s Session) Selected(day string) bool {
	for _, d := range s.SelectedDays {
		if d == day {
			return true
		}
	}
	return false
}
