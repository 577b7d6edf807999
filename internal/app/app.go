// Package app wires one session's state store to the pantry clients. The CLI
// creates one App per invocation and the Telegram bot one per chat.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/auth"
	"smart-pantry/internal/config"
	"smart-pantry/internal/cooktimer"
	"smart-pantry/internal/ingest"
	"smart-pantry/internal/pantry"
	"smart-pantry/internal/recipe"
	"smart-pantry/internal/state"
)

// App holds the application's dependencies for a single user session.
type App struct {
	Store   *state.Store
	Auth    *auth.Client
	Pantry  *pantry.Client
	Ingest  *ingest.Client
	Recipes *recipe.Client

	api *apiclient.Client
}

// NewApp creates an App talking to cfg.APIURL. Extra options are applied
// after the ones derived from cfg.
func NewApp(cfg *config.Config, opts ...apiclient.Option) (*App, error) {
	store := state.NewStore()

	base := []apiclient.Option{
		apiclient.WithClientType(cfg.ClientType),
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	}
	api, err := apiclient.New(cfg.APIURL, store, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	pantryClient := pantry.NewClient(api, store)
	return &App{
		Store:   store,
		Auth:    auth.NewClient(api, store),
		Pantry:  pantryClient,
		Ingest:  ingest.NewClient(api, pantryClient),
		Recipes: recipe.NewClient(api),
		api:     api,
	}, nil
}

// BaseURL returns the server origin this App talks to.
func (a *App) BaseURL() string {
	return a.api.BaseURL()
}

// SignIn logs in when credentials are given and otherwise stays anonymous.
// Either way the pantry is loaded afterwards.
func (a *App) SignIn(ctx context.Context, username, password string) error {
	if username != "" {
		if _, err := a.Auth.Login(ctx, username, password); err != nil {
			return err
		}
	}
	if _, err := a.Pantry.LoadItems(ctx); err != nil {
		return err
	}
	return nil
}

// SuggestForPantry requests recipes for the current pantry.
func (a *App) SuggestForPantry(ctx context.Context) ([]recipe.Recipe, error) {
	items := a.Store.Items()
	if len(items) == 0 {
		log.Printf("Warning: requesting recipes with an empty local pantry")
	}
	return a.Recipes.GenerateRecipes(ctx, items)
}

// Timers builds one idle cook timer per timed step of r.
func Timers(r recipe.Recipe, opts ...cooktimer.Option) []*cooktimer.Timer {
	timers := make([]*cooktimer.Timer, 0, len(r.TimerSteps))
	for _, step := range r.TimerSteps {
		timers = append(timers, cooktimer.FromStep(step, opts...))
	}
	return timers
}
