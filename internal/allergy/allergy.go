// Package allergy decides whether a meal is safe for a set of user allergy
// tags by matching the tags, and a table of synonyms, against the meal's text.
//
// Meals with no matchable text (no name, description, tags or ingredients)
// pass as safe: hiding an edible meal is treated as worse than missing a
// conflict the backend never described.
package allergy

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/mealsub/mealsub-cli/internal/models"
)

// Synonyms maps an allergy tag to words that indicate it in meal text.
var Synonyms = map[string][]string{
	"eggs":      {"egg", "scrambled", "omelet", "omelette", "egg white", "egg yolk"},
	"dairy":     {"milk", "cheese", "butter", "cream", "yogurt", "lactose"},
	"nuts":      {"almond", "walnut", "pecan", "cashew", "pistachio", "hazelnut", "macadamia"},
	"gluten":    {"wheat", "flour", "bread", "pasta", "barley", "rye"},
	"shellfish": {"shrimp", "crab", "lobster", "prawns", "scallops"},
	"soy":       {"soya", "tofu", "soy sauce", "soybeans"},
}

type Result struct {
	Safe      bool
	Conflicts []string
}

// normalizeTags lowercases tags and drops blanks, duplicates and the "none"
// sentinel.
func normalizeTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		t = fold(t)
		if t == "" || t == models.NoAllergies || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

// mealText is the searchable text of a meal plus its individual tokens (tags
// and ingredients). "X-free" markers are removed so that a gluten-free tag
// does not read as gluten.
type mealText struct {
	text   string
	tokens []string
}

func textOf(m models.Meal) mealText {
	var parts, tokens []string
	add := func(s string, token bool) {
		s = stripFreeMarkers(fold(s))
		if s == "" {
			return
		}
		parts = append(parts, s)
		if token {
			tokens = append(tokens, s)
		}
	}
	add(m.Name, false)
	add(m.Description, false)
	for _, t := range m.DietaryTags {
		add(t, true)
	}
	for _, in := range m.Ingredients {
		add(in, true)
	}
	return mealText{text: strings.Join(parts, " "), tokens: tokens}
}

// stripFreeMarkers drops "X-free" words and "X free" pairs where X is an
// allergy tag such as "dairy" or "nut". A pair never spans punctuation, so
// "cheese, free range" keeps the cheese.
func stripFreeMarkers(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for i := 0; i < len(words); i++ {
		w := words[i]
		if strings.HasSuffix(strings.TrimRight(w, punctuation), "-free") {
			continue
		}
		if i+1 < len(words) && strings.TrimRight(words[i+1], punctuation) == "free" &&
			!strings.ContainsAny(w, punctuation) && isAllergen(w) {
			i++
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

const punctuation = ".,;:!?"

// isAllergen reports whether w is an allergy tag from the synonym table.
func isAllergen(w string) bool {
	return synonymsFor(w) != nil
}

func synonymsFor(tag string) []string {
	if syn, ok := Synonyms[tag]; ok {
		return syn
	}
	// "egg" and "nut" should find the plural entries.
	if syn, ok := Synonyms[tag+"s"]; ok {
		return syn
	}
	return nil
}

func conflicts(mt mealText, tag string) bool {
	if mt.text == "" {
		return false
	}
	if strings.Contains(mt.text, tag) {
		return true
	}
	for _, tok := range mt.tokens {
		if strings.Contains(tok, tag) || strings.Contains(tag, tok) {
			return true
		}
	}
	for _, syn := range synonymsFor(tag) {
		if strings.Contains(mt.text, syn) {
			return true
		}
	}
	return false
}

// IsSafe reports every user tag that conflicts with meal.
func IsSafe(meal models.Meal, tags []string) Result {
	tags = normalizeTags(tags)
	if len(tags) == 0 {
		return Result{Safe: true}
	}
	mt := textOf(meal)
	var found []string
	for _, tag := range tags {
		if conflicts(mt, tag) {
			found = append(found, tag)
		}
	}
	return Result{Safe: len(found) == 0, Conflicts: found}
}

// FilterMeals keeps the safe meals, in input order.
func FilterMeals(meals []models.Meal, tags []string) []models.Meal {
	tags = normalizeTags(tags)
	out := make([]models.Meal, 0, len(meals))
	for _, m := range meals {
		if len(tags) == 0 || IsSafe(m, tags).Safe {
			out = append(out, m)
		}
	}
	return out
}
