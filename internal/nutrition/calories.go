package nutrition

import (
	"math"
	"strconv"
	"strings"
)

// Fallbacks used when a form field is empty or not a usable number.
const (
	DefaultWeightKg = 70.0
	DefaultHeightCm = 170.0
	DefaultAgeYears = 30.0
)

const defaultActivityMultiplier = 1.375

// MaxCalories caps the estimate so absurd but finite inputs still yield a
// representable target.
const MaxCalories = math.MaxInt32

var activityMultipliers = map[string]float64{
	"active":      1.55,
	"very active": 1.725,
}

// ActivityMultiplier maps an activity level label to its TDEE factor.
// Unknown labels, including "Sedentary" and "Lightly active", get 1.375.
func ActivityMultiplier(activity string) float64 {
	if m, ok := activityMultipliers[strings.ToLower(strings.TrimSpace(activity))]; ok {
		return m
	}
	return defaultActivityMultiplier
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day.
func BMR(weightKg, heightCm, ageYears float64, sex string) float64 {
	bmr := 10*weightKg + 6.25*heightCm - 5*ageYears
	if isMale(sex) {
		return bmr + 5
	}
	return bmr - 161
}

// EstimateCalories returns the daily calorie target for the raw form values.
// It never fails: unparseable inputs use the package defaults and the result
// is at least 1.
func EstimateCalories(weight, height, age, sex, activity string) int {
	w := parseOr(weight, DefaultWeightKg)
	h := parseOr(height, DefaultHeightCm)
	a := parseOr(age, DefaultAgeYears)

	kcal := math.Round(BMR(w, h, a, sex) * ActivityMultiplier(activity))
	switch {
	case math.IsNaN(kcal) || kcal < 1:
		return 1
	case kcal > MaxCalories:
		return MaxCalories
	}
	return int(kcal)
}

func isMale(sex string) bool {
	s := strings.ToLower(strings.TrimSpace(sex))
	return s == "male" || s == "m"
}

func parseOr(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fallback
	}
	return v
}
