package server

import "smart-pantry/internal/recipe"

// FallbackRecipes is served when no model is configured.
func FallbackRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		{
			Name:        "Pasta with Tomato Sauce",
			Description: "A simple and classic pasta dish",
			Ingredients: []string{"8 oz pasta", "2 medium tomatoes", "2 cloves garlic", "2 tbsp olive oil"},
			Instructions: []string{
				"Boil water and cook pasta according to package directions",
				"Heat olive oil in a pan, add minced garlic",
				"Add chopped tomatoes and cook until softened",
				"Season with salt and pepper",
				"Toss cooked pasta with sauce and serve",
			},
			PrepTime:     "10 minutes",
			CookTime:     "15 minutes",
			Difficulty:   "Easy",
			Servings:     2,
			HealthRating: recipe.ModeratelyHealthy,
			DietaryInfo:  []string{"Vegan"},
			TimerSteps: []recipe.TimerStep{
				{StepNumber: 1, Instruction: "Cook pasta", DurationMinutes: 10, Description: "Boil pasta"},
				{StepNumber: 3, Instruction: "Cook tomatoes until softened", DurationMinutes: 5, Description: "Simmer sauce"},
			},
		},
		{
			Name:        "Grilled Cheese Sandwich",
			Description: "A comforting classic sandwich",
			Ingredients: []string{"4 slices bread", "4 slices cheese", "2 tbsp butter"},
			Instructions: []string{
				"Butter one side of each bread slice",
				"Place cheese between bread slices",
				"Heat a pan over medium heat",
				"Cook sandwich until golden brown on both sides",
				"Serve hot",
			},
			PrepTime:     "5 minutes",
			CookTime:     "8 minutes",
			Difficulty:   "Easy",
			Servings:     2,
			HealthRating: recipe.Unhealthy,
			DietaryInfo:  []string{"Vegetarian"},
			TimerSteps: []recipe.TimerStep{
				{StepNumber: 4, Instruction: "Cook sandwich until golden brown", DurationMinutes: 4, Description: "Grill sandwich"},
			},
		},
	}
}
