package patient

import (
	"strings"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/nutrition"
)

// Constraints are derived from the patient record and sent alongside it
// when a diet plan is requested.
type Constraints struct {
	CalorieTarget int      `json:"calorie_target"`
	Exclude       []string `json:"exclude"`
	Preferences   string   `json:"preferences"`
}

// ParseExclusions splits a comma-separated allergy list, trimming entries
// and dropping empty ones. The result is never nil.
func ParseExclusions(allergies string) []string {
	out := []string{}
	for _, part := range strings.Split(allergies, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p Patient) CalorieTarget() int {
	return nutrition.EstimateCalories(p.Weight, p.Height, p.Age, p.Sex, string(p.Activity))
}

func (p Patient) Constraints() Constraints {
	return Constraints{
		CalorieTarget: p.CalorieTarget(),
		Exclude:       ParseExclusions(p.Allergies),
		Preferences:   string(p.Preference),
	}
}
