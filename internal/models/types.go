package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mealsub/mealsub-cli/internal/daykey"
)

// ID is an opaque server-assigned identifier. The backend sends numbers for some
// resources and strings for others; ID keeps whichever form it received.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes canonical integers as bare numbers so payloads echo the
// server's own representation. "007" or "+5" stay strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Envelope is the {success, data, message} wrapper every backend response uses.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Meal categories.
const (
	Breakfast = "breakfast"
	Lunch     = "lunch"
	Dinner    = "dinner"
	Snacks    = "snacks"
)

var Categories = []string{Breakfast, Lunch, Dinner, Snacks}

// Meal is a single dish as served by the backend, with nutrition already
// normalised to one field per macro.
type Meal struct {
	ID          ID       `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Calories    float64  `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	Fiber       float64  `json:"fiber"`
	Category    string   `json:"category,omitempty"`
	DietaryTags []string `json:"dietary_tags,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Rating      *int     `json:"rating,omitempty"`
}

// Premium reports whether the meal carries the top rating.
func (m Meal) Premium() bool {
	return m.Rating != nil && *m.Rating >= 5
}

// Clone returns a copy that shares no slices or pointers with m.
func (m Meal) Clone() Meal {
	c := m
	if m.DietaryTags != nil {
		c.DietaryTags = append([]string(nil), m.DietaryTags...)
	}
	if m.Ingredients != nil {
		c.Ingredients = append([]string(nil), m.Ingredients...)
	}
	if m.Rating != nil {
		r := *m.Rating
		c.Rating = &r
	}
	return c
}

// Day maps a meal-slot key (lunch, snacks_2, ...) to the meal in it. A nil
// value is an empty slot.
type Day map[string]*Meal

type Week struct {
	WeekNumber int            `json:"weekNumber,omitempty"`
	StartDate  string         `json:"startDate,omitempty"`
	Days       map[string]Day `json:"days"`
}

// ByFullName groups the week's days under full lowercase day names. Days sent
// under several key forms ("MON" and "monday") are merged; when both fill the
// same slot the full-name key wins, otherwise keys apply in sorted order.
// Unknown day keys and empty slots are dropped. Meals are shared, not copied.
func (w Week) ByFullName() map[string]Day {
	type entry struct {
		key, name string
	}
	entries := make([]entry, 0, len(w.Days))
	for key := range w.Days {
		name, err := daykey.ToFullName(key)
		if err != nil {
			continue
		}
		entries = append(entries, entry{key, name})
	}
	sort.Slice(entries, func(i, j int) bool {
		fi, fj := entries[i].key == entries[i].name, entries[j].key == entries[j].name
		if fi != fj {
			return fj
		}
		return entries[i].key < entries[j].key
	})

	out := make(map[string]Day, len(entries))
	for _, e := range entries {
		day := out[e.name]
		if day == nil {
			day = Day{}
			out[e.name] = day
		}
		for slot, meal := range w.Days[e.key] {
			if meal != nil {
				day[strings.ToLower(slot)] = meal
			}
		}
	}
	return out
}

// Schedule is the multi-week calendar for one user. Weeks[0] is the week
// containing today.
type Schedule struct {
	UserID ID     `json:"userId,omitempty"`
	Weeks  []Week `json:"weeks"`
}

// Dietary plans.
const (
	PlanBalanced     = "Balanced"
	PlanLowCarb      = "Low Carb"
	PlanProteinBoost = "Protein Boost"
	PlanVegetarian   = "Vegetarian Kitchen"
	PlanChefsChoice  = "Chef's Choice"
	PlanKeto         = "Keto"
)

var Plans = []string{PlanBalanced, PlanLowCarb, PlanProteinBoost, PlanVegetarian, PlanChefsChoice, PlanKeto}

// Subscription cycles.
const (
	CycleWeekly    = "weekly"
	CycleMonthly   = "monthly"
	CycleQuarterly = "quarterly"
)

// NoAllergies is the sentinel tag stored when a user has no allergies.
const NoAllergies = "none"

type User struct {
	ID                ID       `json:"id"`
	Name              string   `json:"name,omitempty"`
	Phone             string   `json:"phone,omitempty"`
	SelectedDays      []string `json:"selectedDays"`
	MealTypes         []string `json:"mealTypes"`
	Plan              string   `json:"plan,omitempty"`
	Allergies         []string `json:"allergies"`
	SubscriptionCycle string   `json:"subscriptionCycle,omitempty"`
}

// HorizonWeeks is the number of schedule weeks the user's cycle covers.
func (u User) HorizonWeeks() int {
	switch u.SubscriptionCycle {
	case CycleWeekly:
		return 1
	case CycleQuarterly:
		return 12
	default:
		return 4
	}
}

// UserUpdate is the partial body for PUT /users/{id}. Nil fields are left alone.
type UserUpdate struct {
	Name              *string  `json:"name,omitempty"`
	SelectedDays      []string `json:"selectedDays,omitempty"`
	MealTypes         []string `json:"mealTypes,omitempty"`
	Plan              *string  `json:"plan,omitempty"`
	Allergies         []string `json:"allergies,omitempty"`
	SubscriptionCycle *string  `json:"subscriptionCycle,omitempty"`
}

// MealQuery holds the optional filters of GET /meals.
type MealQuery struct {
	Category    string
	DietaryTags []string
	Limit       int
	Offset      int
}

// CategoryOfKey returns the category a slot key belongs to: "snacks_2" is a
// snacks slot, "lunch" is a lunch slot.
func CategoryOfKey(key string) string {
	key = strings.ToLower(key)
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return key
}

// KeyInCategory reports whether key is category itself or one of its
// disambiguated variants (category_N).
func KeyInCategory(key, category string) bool {
	key, category = strings.ToLower(key), strings.ToLower(category)
	return key == category || strings.HasPrefix(key, category+"_")
}

// CategoryLabel returns a display label for a category or slot key.
func CategoryLabel(key string) string {
	cat := CategoryOfKey(key)
	// Casers carry state; one per call.
	label := cases.Title(language.English).String(cat)
	if suffix, ok := strings.CutPrefix(strings.ToLower(key), cat+"_"); ok && suffix != "" {
		label += " " + suffix
	}
	return label
}
