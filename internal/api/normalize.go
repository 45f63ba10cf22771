package api

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/mealsub/mealsub-cli/internal/daykey"
	"github.com/mealsub/mealsub-cli/internal/models"
)

// The backend is loose with types: macros arrive as numbers, numeric strings
// or null, fat is sometimes "fats", and tag lists are occasionally a single
// comma-separated string. Everything is settled here so nothing downstream
// sees the wire shape.

type flexNumber struct {
	v   float64
	set bool
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexNumber{v: f, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*n = flexNumber{v: f, set: true}
		}
	}
	// null, objects and junk read as missing.
	return nil
}

type flexStrings []string

func (s *flexStrings) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, v := range list {
			if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
				out = append(out, strings.TrimSpace(str))
			}
		}
		*s = out
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		var out []string
		for _, part := range strings.Split(one, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*s = out
	}
	return nil
}

type wireMeal struct {
	ID          models.ID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ImageURL    string      `json:"image_url"`
	Calories    flexNumber  `json:"calories"`
	Protein     flexNumber  `json:"protein"`
	Carbs       flexNumber  `json:"carbs"`
	Fat         flexNumber  `json:"fat"`
	Fats        flexNumber  `json:"fats"`
	Fiber       flexNumber  `json:"fiber"`
	Category    string      `json:"category"`
	DietaryTags flexStrings `json:"dietary_tags"`
	Ingredients flexStrings `json:"ingredients"`
	Rating      flexNumber  `json:"rating"`
}

func (w wireMeal) normalize() models.Meal {
	m := models.Meal{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		ImageURL:    w.ImageURL,
		Calories:    w.Calories.v,
		Protein:     w.Protein.v,
		Carbs:       w.Carbs.v,
		Fat:         w.Fat.v,
		Fiber:       w.Fiber.v,
		Category:    strings.ToLower(strings.TrimSpace(w.Category)),
		DietaryTags: []string(w.DietaryTags),
		Ingredients: []string(w.Ingredients),
	}
	if !w.Fat.set {
		m.Fat = w.Fats.v
	}
	if m.Category == "snack" {
		m.Category = models.Snacks
	}
	if w.Rating.set {
		r := int(math.Round(w.Rating.v))
		m.Rating = &r
	}
	return m
}

type wireWeek struct {
	WeekNumber int                             `json:"weekNumber"`
	StartDate  string                          `json:"startDate"`
	Days       map[string]map[string]*wireMeal `json:"days"`
}

type wireSchedule struct {
	UserID models.ID  `json:"userId"`
	Weeks  []wireWeek `json:"weeks"`
}

// normalize converts to the domain schedule. Day keys in any day-key form are
// mapped to full names, unknown ones are dropped, and all seven days are
// present in every week.
func (w wireSchedule) normalize() *models.Schedule {
	s := &models.Schedule{UserID: w.UserID, Weeks: make([]models.Week, 0, len(w.Weeks))}
	for _, ww := range w.Weeks {
		week := models.Week{WeekNumber: ww.WeekNumber, StartDate: ww.StartDate, Days: make(map[string]models.Day, 7)}
		for _, name := range daykey.All() {
			week.Days[name] = models.Day{}
		}
		for key, slots := range ww.Days {
			name, err := daykey.ToFullName(key)
			if err != nil {
				continue
			}
			day := week.Days[name]
			for slot, wm := range slots {
				slot = strings.ToLower(strings.TrimSpace(slot))
				if wm == nil {
					day[slot] = nil
					continue
				}
				m := wm.normalize()
				day[slot] = &m
			}
		}
		s.Weeks = append(s.Weeks, week)
	}
	return s
}
