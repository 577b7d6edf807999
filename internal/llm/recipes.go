package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"smart-pantry/internal/recipe"
	"smart-pantry/internal/shared"
)

// RecipeSystemPrompt is the system message used with the recipe generator.
const RecipeSystemPrompt = "You are a creative chef. Return only valid JSON with 3 different recipes."

// RecipeSuggester turns a pantry list into recipe suggestions.
type RecipeSuggester struct {
	gen TextGenerator
}

// NewRecipeSuggester creates a suggester backed by gen.
func NewRecipeSuggester(gen TextGenerator) *RecipeSuggester {
	return &RecipeSuggester{gen: gen}
}

// Suggest asks the model for three recipes built from items.
func (s *RecipeSuggester) Suggest(ctx context.Context, items []string) ([]recipe.Recipe, shared.TokenUsage, error) {
	resp, err := s.gen.GenerateContent(ctx, BuildRecipePrompt(items))
	if err != nil {
		return nil, shared.TokenUsage{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	recipes, err := ParseRecipes(resp.Content)
	if err != nil {
		return nil, resp.Usage, err
	}
	return recipes, resp.Usage, nil
}

// BuildRecipePrompt renders the recipe request for items.
func BuildRecipePrompt(items []string) string {
	list := strings.Join(items, ", ")
	return fmt.Sprintf(`
	Create 3 delicious and diverse recipes using these available ingredients: %s

	Requirements:
	- Each recipe must use at least 2-3 ingredients from the list above
	- Basic staples (salt, pepper, oil, butter) may be added as needed
	- Keep recipes practical, with realistic times and difficulty levels
	- Make each recipe different in cuisine or cooking method
	- Rate each recipe "Healthy", "Moderately Healthy" or "Unhealthy"
	- List dietary labels ("Vegan", "Vegetarian", "Halal", "Kosher", "Gluten-Free", "Dairy-Free") only when they clearly apply, otherwise an empty array
	- Add timer steps only for steps that need timing (frying, baking, simmering); duration is in minutes

	Return a JSON object with this exact structure:
	{
		"recipes": [
			{
				"name": "Recipe Name",
				"description": "Brief description of the dish",
				"ingredients": ["2 cups ingredient", "1 tsp salt"],
				"instructions": ["Step 1: Prepare ingredients", "Step 2: Cook the dish"],
				"prepTime": "15 minutes",
				"cookTime": "30 minutes",
				"difficulty": "Easy",
				"servings": 4,
				"healthRating": "Healthy",
				"dietaryInfo": ["Vegetarian"],
				"timerSteps": [{"stepNumber": 2, "instruction": "Fry the vegetables until golden", "duration": 8, "description": "Fry vegetables"}],
				"nutrition": {"calories": "350 kcal", "carbs": "45g", "protein": "20g", "fat": "12g"}
			}
		]
	}

	Return ONLY the raw JSON string. Do not wrap the response in markdown code blocks.
	`, list)
}

// StripCodeFences removes a surrounding ``` or ```json fence.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseRecipes decodes a model reply of the form {"recipes": [...]}.
func ParseRecipes(content string) ([]recipe.Recipe, error) {
	var payload struct {
		Recipes []recipe.Recipe `json:"recipes"`
	}
	if err := json.Unmarshal([]byte(StripCodeFences(content)), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM response into recipes: %w. LLM Response: %s", err, content)
	}
	if len(payload.Recipes) == 0 {
		return nil, fmt.Errorf("LLM response contained no recipes")
	}
	return payload.Recipes, nil
}
