package app

import (
	"fmt"
	"strings"

	"smart-pantry/internal/metrics"
	"smart-pantry/internal/recipe"
)

// FormatPantry renders the pantry as a numbered list.
func FormatPantry(items []string) string {
	if len(items) == 0 {
		return "Your pantry is empty."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Pantry (%d items):\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item)
	}
	return sb.String()
}

// FormatRecipe renders a recipe with a health badge next to every ingredient.
func FormatRecipe(r recipe.Recipe) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "=== %s ===\n", r.Name)
	if r.Description != "" {
		fmt.Fprintf(&sb, "%s\n", r.Description)
	}
	fmt.Fprintf(&sb, "Prep: %s | Cook: %s | %s | Serves %d\n", r.PrepTime, r.CookTime, r.Difficulty, r.Servings)
	if r.HealthRating != recipe.Unrated {
		fmt.Fprintf(&sb, "Health: %s %s\n", r.HealthRating.Badge(), r.HealthRating)
	}
	if len(r.DietaryInfo) > 0 {
		fmt.Fprintf(&sb, "Dietary: %s\n", strings.Join(r.DietaryInfo, ", "))
	}

	sb.WriteString("\nIngredients:\n")
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&sb, "%s %s\n", recipe.ClassifyIngredient(ing).Badge(), ing)
	}

	sb.WriteString("\nInstructions:\n")
	for i, step := range r.Instructions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}

	if len(r.TimerSteps) > 0 {
		sb.WriteString("\nTimers:\n")
		for _, ts := range r.TimerSteps {
			fmt.Fprintf(&sb, "Step %d: %s (%d min)\n", ts.StepNumber, ts.Description, ts.DurationMinutes)
		}
	}

	if n := r.Nutrition; n != nil {
		fmt.Fprintf(&sb, "\nNutrition: %s, carbs %s, protein %s, fat %s\n", n.Calories, n.Carbs, n.Protein, n.Fat)
	}
	return sb.String()
}

// FormatUsage renders daily request totals.
func FormatUsage(usage []metrics.DailyUsage) string {
	if len(usage) == 0 {
		return "No requests recorded."
	}
	var sb strings.Builder
	for _, u := range usage {
		fmt.Fprintf(&sb, "%s: %d requests, %d failed, avg %dms", u.Date, u.TotalExecution, u.Failures, u.AvgLatencyMS)
		if u.TotalPrompt+u.TotalCompletion > 0 {
			fmt.Fprintf(&sb, ", tokens %d/%d", u.TotalPrompt, u.TotalCompletion)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
