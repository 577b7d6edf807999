package recipe

import "strings"

var healthyKeywords = []string{
	"vegetable", "broccoli", "spinach", "carrot", "tomato", "onion", "garlic",
	"lettuce", "cucumber", "pepper", "avocado", "lemon", "lime", "apple",
	"banana", "berry", "chicken breast", "salmon", "egg", "yogurt", "oat",
	"quinoa", "brown rice", "olive oil", "almond", "walnut",
}

var unhealthyKeywords = []string{
	"sugar", "butter", "cream", "cheese", "bacon", "sausage", "fried",
	"processed", "white bread", "pasta", "soda", "candy", "chocolate",
	"cake", "cookie", "chips",
}

// ClassifyIngredient rates an ingredient line by keyword. Healthy keywords
// win over unhealthy ones, so "peanut butter with apple" is Healthy.
// Anything unmatched is ModeratelyHealthy.
func ClassifyIngredient(name string) HealthRating {
	lower := strings.ToLower(name)
	if containsAny(lower, healthyKeywords) {
		return Healthy
	}
	if containsAny(lower, unhealthyKeywords) {
		return Unhealthy
	}
	return ModeratelyHealthy
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
