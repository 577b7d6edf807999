package recipe

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Recipe is a suggestion returned by the pantry service. It is never stored;
// ID only distinguishes recipes within one result set.
type Recipe struct {
	ID           uuid.UUID    `json:"-"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Ingredients  []string     `json:"ingredients"`
	Instructions []string     `json:"instructions"`
	PrepTime     string       `json:"prepTime"`
	CookTime     string       `json:"cookTime"`
	Difficulty   string       `json:"difficulty"`
	Servings     int          `json:"servings"`
	Nutrition    *Nutrition   `json:"nutrition,omitempty"`
	HealthRating HealthRating `json:"healthRating,omitempty"`
	DietaryInfo  []string     `json:"dietaryInfo,omitempty"`
	TimerSteps   []TimerStep  `json:"timerSteps,omitempty"`
}

// Nutrition values are free-form strings such as "350 kcal" or "12g".
type Nutrition struct {
	Calories string `json:"calories"`
	Carbs    string `json:"carbs"`
	Protein  string `json:"protein"`
	Fat      string `json:"fat"`
}

// TimerStep marks an instruction that needs timing.
type TimerStep struct {
	StepNumber      int    `json:"stepNumber"`
	Instruction     string `json:"instruction"`
	DurationMinutes int    `json:"duration"`
	Description     string `json:"description"`
}

// AssignIDs gives every recipe a fresh local identity.
func AssignIDs(recipes []Recipe) {
	for i := range recipes {
		recipes[i].ID = uuid.New()
	}
}

// HealthRating grades a recipe or an ingredient.
type HealthRating int

const (
	Unrated HealthRating = iota
	Healthy
	ModeratelyHealthy
	Unhealthy
)

// String returns the wire form of the rating.
func (h HealthRating) String() string {
	switch h {
	case Healthy:
		return "Healthy"
	case ModeratelyHealthy:
		return "Moderately Healthy"
	case Unhealthy:
		return "Unhealthy"
	default:
		return ""
	}
}

// Badge is a short marker for chat and terminal output.
func (h HealthRating) Badge() string {
	switch h {
	case Healthy:
		return "🟢"
	case ModeratelyHealthy:
		return "🟠"
	case Unhealthy:
		return "🔴"
	default:
		return "⚪"
	}
}

// ParseHealthRating is case-insensitive. Unknown values are Unrated.
func ParseHealthRating(s string) HealthRating {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "healthy":
		return Healthy
	case "moderately healthy":
		return ModeratelyHealthy
	case "unhealthy":
		return Unhealthy
	default:
		return Unrated
	}
}

func (h HealthRating) MarshalJSON() ([]byte, error) {
	if h == Unrated {
		return []byte("null"), nil
	}
	return json.Marshal(h.String())
}

// UnmarshalJSON never fails on a string or null; anything unrecognised
// decodes as Unrated.
func (h *HealthRating) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		*h = Unrated
		return nil
	}
	if s == nil {
		*h = Unrated
		return nil
	}
	*h = ParseHealthRating(*s)
	return nil
}
