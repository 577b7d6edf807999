package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/google/uuid"

	"smart-pantry/internal/apiclient"
)

func TestClassifyIngredient(t *testing.T) {
	tests := []struct {
		name string
		want HealthRating
	}{
		{"grilled chicken breast", Healthy},
		{"White Bread", Unhealthy},
		{"canned beans", ModeratelyHealthy},
		{"2 tbsp Olive Oil", Healthy},
		{"heavy cream", Unhealthy},
		{"peanut butter with apple slices", Healthy},
		{"", ModeratelyHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIngredient(tt.name); got != tt.want {
				t.Errorf("ClassifyIngredient(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestHealthRatingJSON(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		var r Recipe
		if err := json.Unmarshal([]byte(`{"healthRating": "moderately healthy"}`), &r); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if r.HealthRating != ModeratelyHealthy {
			t.Errorf("Expected ModeratelyHealthy, got %v", r.HealthRating)
		}
	})

	t.Run("UnknownIsUnrated", func(t *testing.T) {
		for _, raw := range []string{`"Superfood"`, `null`, `42`} {
			var r Recipe
			if err := json.Unmarshal([]byte(`{"healthRating": `+raw+`}`), &r); err != nil {
				t.Fatalf("Expected no error for %s, got %v", raw, err)
			}
			if r.HealthRating != Unrated {
				t.Errorf("Expected Unrated for %s, got %v", raw, r.HealthRating)
			}
		}
	})

	t.Run("Encode", func(t *testing.T) {
		data, err := json.Marshal(Recipe{Name: "Soup", HealthRating: Unhealthy})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		var m map[string]any
		json.Unmarshal(data, &m)
		if m["healthRating"] != "Unhealthy" {
			t.Errorf("Expected 'Unhealthy', got %v", m["healthRating"])
		}

		data, _ = json.Marshal(Recipe{Name: "Soup"})
		m = nil
		json.Unmarshal(data, &m)
		if _, ok := m["healthRating"]; ok {
			t.Error("Expected unrated recipe to omit healthRating")
		}
	})
}

func TestGenerateRecipes(t *testing.T) {
	var gotItems []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/recipes/suggest" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body SuggestRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotItems = body.PantryItems

		fmt.Fprint(w, `{"success": true, "recipes": [
			{"name": "Tomato Omelette", "description": "Quick", "ingredients": ["2 eggs", "1 tomato"],
			 "instructions": ["Beat eggs", "Cook"], "prepTime": "5 minutes", "cookTime": "10 minutes",
			 "difficulty": "Easy", "servings": 1, "healthRating": "Healthy", "dietaryInfo": ["Vegetarian"],
			 "nutrition": {"calories": "250 kcal", "carbs": "4g", "protein": "14g", "fat": "18g"},
			 "timerSteps": [{"stepNumber": 2, "instruction": "Cook", "duration": 4, "description": "Cook eggs"}]},
			{"name": "Plain Toast", "description": "", "ingredients": [], "instructions": [],
			 "prepTime": "", "cookTime": "", "difficulty": "Easy", "servings": 1}
		]}`)
	}))
	defer server.Close()

	api, _ := apiclient.New(server.URL, nil)
	client := NewClient(api)

	recipes, err := client.GenerateRecipes(context.Background(), []string{"eggs", "tomato"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !slices.Equal(gotItems, []string{"eggs", "tomato"}) {
		t.Errorf("Expected pantry items to be sent, got %v", gotItems)
	}
	if len(recipes) != 2 {
		t.Fatalf("Expected 2 recipes, got %d", len(recipes))
	}

	first := recipes[0]
	if first.HealthRating != Healthy || first.Nutrition == nil || first.Nutrition.Protein != "14g" {
		t.Errorf("Unexpected first recipe: %+v", first)
	}
	if len(first.TimerSteps) != 1 || first.TimerSteps[0].DurationMinutes != 4 {
		t.Errorf("Expected one 4 minute timer step, got %+v", first.TimerSteps)
	}

	bare := recipes[1]
	if bare.Nutrition != nil || bare.HealthRating != Unrated || bare.DietaryInfo != nil || bare.TimerSteps != nil {
		t.Errorf("Expected optional fields to be absent, got %+v", bare)
	}

	if first.ID == uuid.Nil || first.ID == bare.ID {
		t.Errorf("Expected distinct local ids, got %s and %s", first.ID, bare.ID)
	}
}

func TestGenerateRecipesErrors(t *testing.T) {
	t.Run("EmptyPantry", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"success": false, "error": "No pantry items provided"}`)
		}))
		defer server.Close()

		api, _ := apiclient.New(server.URL, nil)
		_, err := NewClient(api).GenerateRecipes(context.Background(), nil)

		var se *apiclient.StatusError
		if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
			t.Fatalf("Expected StatusError 400, got %v", err)
		}
		if se.Message != "No pantry items provided" {
			t.Errorf("Unexpected message '%s'", se.Message)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": true, "recipes": "nope"}`)
		}))
		defer server.Close()

		api, _ := apiclient.New(server.URL, nil)
		_, err := NewClient(api).GenerateRecipes(context.Background(), []string{"rice"})
		if !errors.Is(err, apiclient.ErrInvalidResponse) {
			t.Fatalf("Expected ErrInvalidResponse, got %v", err)
		}
	})
}
