// Package pantry keeps the local pantry view in step with the server. Every
// mutation is followed by a full reload; the client never edits the list
// itself.
package pantry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/state"
)

const (
	pantryPath = "/api/pantry"
	healthPath = "/api/health"
)

// Response is the list-pantry body.
type Response struct {
	Success bool     `json:"success"`
	Items   []string `json:"items"`
	Count   *int     `json:"count"`
}

type addRequest struct {
	Item string `json:"item"`
}

// Client performs pantry CRUD for the session in store.
type Client struct {
	api   *apiclient.Client
	store *state.Store
}

// NewClient creates a new pantry client.
func NewClient(api *apiclient.Client, store *state.Store) *Client {
	return &Client{api: api, store: store}
}

// LoadItems fetches the pantry and replaces the local list with it. If the
// session is signed out or replaced before the response arrives, the response
// is dropped and state.ErrStaleSession returned.
func (c *Client) LoadItems(ctx context.Context) ([]string, error) {
	epoch := c.store.Epoch()
	resp, err := c.api.Get(ctx, "pantry.load", pantryPath)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiclient.NewStatusError(resp, apiclient.ErrInvalidResponse, "")
	}

	var result Response
	if err := apiclient.DecodeJSON(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to load pantry: %w", err)
	}
	if result.Items == nil {
		result.Items = []string{}
	}

	count := len(result.Items)
	if result.Count != nil {
		count = *result.Count
	}
	if !c.store.ReplacePantry(epoch, state.Pantry{Items: result.Items, Count: count}) {
		return nil, fmt.Errorf("failed to load pantry: %w", state.ErrStaleSession)
	}
	return result.Items, nil
}

// AddItem asks the server to add name, then reloads.
func (c *Client) AddItem(ctx context.Context, name string) error {
	resp, err := c.api.SendJSON(ctx, "pantry.add", http.MethodPost, pantryPath, addRequest{Item: name})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiclient.NewStatusError(resp, apiclient.ErrInvalidResponse, "")
	}
	apiclient.Drain(resp)

	if _, err := c.LoadItems(ctx); err != nil {
		return fmt.Errorf("failed to reload pantry after add: %w", err)
	}
	return nil
}

// DeleteItem asks the server to remove name, then reloads. Membership is
// not checked locally.
func (c *Client) DeleteItem(ctx context.Context, name string) error {
	resp, err := c.api.Delete(ctx, "pantry.delete", pantryPath+"/"+url.PathEscape(name))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiclient.NewStatusError(resp, apiclient.ErrInvalidResponse, "")
	}
	apiclient.Drain(resp)

	if _, err := c.LoadItems(ctx); err != nil {
		return fmt.Errorf("failed to reload pantry after delete: %w", err)
	}
	return nil
}

// CheckHealth reports whether the server answered 200. It never fails; the
// result is also stored as the connectivity flag.
func (c *Client) CheckHealth(ctx context.Context) bool {
	online := false
	resp, err := c.api.Get(ctx, "health", healthPath)
	if err == nil {
		online = resp.StatusCode == http.StatusOK
		apiclient.Drain(resp)
		resp.Body.Close()
	}

	c.store.SetOnline(online)
	return online
}
