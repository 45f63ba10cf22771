// Package daykey converts between the three day namings used across the
// client: full lowercase names ("monday"), three-letter codes ("MON") and
// numeric weekdays (0 = Sunday).
//
// Every conversion fails with ErrInvalidDayKey on unknown input. Nothing here
// falls back to a default day.
package daykey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDayKey = errors.New("invalid day key")

// InvalidKeyError carries the offending input.
type InvalidKeyError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("%s: %q", ErrInvalidDayKey, e.Key)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidDayKey
}

// Indexed by weekday number.
var (
	fullNames  = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	shortCodes = [7]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}
)

// WeekOrder is the canonical display order: Monday first.
var WeekOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// All returns the full names in weekday-number order (Sunday first).
func All() []string {
	return append([]string(nil), fullNames[:]...)
}

func invalid(key string) error {
	return &InvalidKeyError{Key: key}
}

// ToFullName accepts a three-letter code, a numeric weekday or a full name
// (in any case) and returns the full lowercase name.
func ToFullName(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return "", invalid(key)
	}
	if n, err := strconv.Atoi(k); err == nil {
		return FromJSWeekdayIndex(n)
	}
	upper := strings.ToUpper(k)
	for i, code := range shortCodes {
		if upper == code {
			return fullNames[i], nil
		}
	}
	lower := strings.ToLower(k)
	for _, name := range fullNames {
		if lower == name {
			return name, nil
		}
	}
	return "", invalid(key)
}

// ToShortCode maps a full day name to its three-letter uppercase code.
func ToShortCode(fullName string) (string, error) {
	i, err := IndexOf(fullName)
	if err != nil {
		return "", err
	}
	return shortCodes[i], nil
}

// IndexOf returns the weekday number (0 = Sunday) of a full day name.
func IndexOf(fullName string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(fullName))
	for i, name := range fullNames {
		if lower == name {
			return i, nil
		}
	}
	return 0, invalid(fullName)
}

// JSWeekdayIndex returns 0..6 with 0 = Sunday, in t's location.
func JSWeekdayIndex(t time.Time) int {
	return int(t.Weekday())
}

// FromJSWeekdayIndex maps 0..6 (0 = Sunday) to a full day name.
func FromJSWeekdayIndex(i int) (string, error) {
	if i < 0 || i > 6 {
		return "", invalid(strconv.Itoa(i))
	}
	return fullNames[i], nil
}

// FullNameOf returns the full day name of t.
func FullNameOf(t time.Time) string {
	return fullNames[t.Weekday()]
}

// MondayOffset is the position of a full day name in WeekOrder.
func MondayOffset(fullName string) (int, error) {
	i, err := IndexOf(fullName)
	if err != nil {
		return 0, err
	}
	return (i + 6) % 7, nil
}

// NormalizeSet converts any mix of day keys to full names in WeekOrder,
// dropping duplicates. The first unrecognised key aborts the conversion.
func NormalizeSet(keys []string) ([]string, error) {
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		name, err := ToFullName(k)
		if err != nil {
			return nil, err
		}
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for _, name := range WeekOrder {
		if seen[name] {
			out = append(out, name)
		}
	}
	return out, nil
}
