// Package recipe holds the recipe model, the ingredient health classifier and
// the client that asks the pantry service for suggestions.
package recipe

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"smart-pantry/internal/apiclient"
)

const suggestPath = "/api/recipes/suggest"

// SuggestRequest is the suggest-recipes body.
type SuggestRequest struct {
	PantryItems []string `json:"pantry_items"`
}

// SuggestResponse is the suggest-recipes success body.
type SuggestResponse struct {
	Success bool     `json:"success"`
	Recipes []Recipe `json:"recipes"`
	Source  string   `json:"source,omitempty"`
}

// Client requests recipe suggestions. Results are not cached.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a new recipe client.
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// GenerateRecipes sends pantryItems to the server and returns its suggestions.
func (c *Client) GenerateRecipes(ctx context.Context, pantryItems []string) ([]Recipe, error) {
	if pantryItems == nil {
		pantryItems = []string{}
	}

	resp, err := c.api.SendJSON(ctx, "recipes.suggest", http.MethodPost, suggestPath, SuggestRequest{PantryItems: pantryItems})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiclient.NewStatusError(resp, apiclient.ErrInvalidResponse, "")
	}

	var result SuggestResponse
	if err := apiclient.DecodeJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to read recipes: %w", err)
	}

	AssignIDs(result.Recipes)
	if result.Source != "" {
		log.Printf("Received %d recipes (%s)", len(result.Recipes), result.Source)
	}
	return result.Recipes, nil
}
