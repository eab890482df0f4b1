package patient

import (
	"errors"
	"fmt"
	"strings"
)

type ActivityLevel string

const (
	Sedentary     ActivityLevel = "Sedentary"
	LightlyActive ActivityLevel = "Lightly active"
	Active        ActivityLevel = "Active"
	VeryActive    ActivityLevel = "Very Active"
)

// ActivityLevels lists the options in the order the form shows them.
var ActivityLevels = []ActivityLevel{Sedentary, LightlyActive, Active, VeryActive}

type DietaryPreference string

const (
	NoPreference  DietaryPreference = "No preference"
	Vegetarian    DietaryPreference = "Vegetarian"
	Vegan         DietaryPreference = "Vegan"
	Eggetarian    DietaryPreference = "Eggetarian"
	NonVegetarian DietaryPreference = "Non-vegetarian"
	Jain          DietaryPreference = "Jain"
)

var DietaryPreferences = []DietaryPreference{
	NoPreference, Vegetarian, Vegan, Eggetarian, NonVegetarian, Jain,
}

// Sexes offered by the form. Anything other than "male" is treated as
// female by the calorie estimator.
var Sexes = []string{"male", "female"}

var ErrUnknownField = errors.New("unknown patient field")

// Patient is the record the dietitian fills in. Numeric fields keep the raw
// text that was typed; they are only interpreted by the calorie estimator.
type Patient struct {
	Name       string            `json:"name"`
	Age        string            `json:"age"`
	Sex        string            `json:"sex"`
	Weight     string            `json:"weight"`
	Height     string            `json:"height"`
	Activity   ActivityLevel     `json:"activity"`
	Allergies  string            `json:"allergies"`
	Preference DietaryPreference `json:"preference"`
	Notes      string            `json:"notes"`
}

// New returns an empty record with the form's initial selections.
func New() Patient {
	return Patient{
		Sex:        "male",
		Activity:   Sedentary,
		Preference: NoPreference,
	}
}

// Fields lists the form field names accepted by Set, in display order.
func Fields() []string {
	return []string{
		"name", "age", "sex", "weight", "height",
		"activity", "allergies", "preference", "notes",
	}
}

// Set updates a single field by its form name.
func (p *Patient) Set(field, value string) error {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name":
		p.Name = value
	case "age":
		p.Age = value
	case "sex":
		p.Sex = value
	case "weight":
		p.Weight = value
	case "height":
		p.Height = value
	case "activity":
		p.Activity = ActivityLevel(value)
	case "allergies":
		p.Allergies = value
	case "preference":
		p.Preference = DietaryPreference(value)
	case "notes":
		p.Notes = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// Get reads a field by its form name. Unknown names return "".
func (p Patient) Get(field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name":
		return p.Name
	case "age":
		return p.Age
	case "sex":
		return p.Sex
	case "weight":
		return p.Weight
	case "height":
		return p.Height
	case "activity":
		return string(p.Activity)
	case "allergies":
		return p.Allergies
	case "preference":
		return string(p.Preference)
	case "notes":
		return p.Notes
	}
	return ""
}
