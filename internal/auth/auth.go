// Package auth signs users up and in against the pantry service and installs
// the resulting session in the shared state store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/state"
)

const (
	signupPath = "/api/auth/signup"
	loginPath  = "/api/auth/login"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Pantry   []string `json:"pantry"`
}

// Client performs signup, login and logout.
type Client struct {
	api   *apiclient.Client
	store *state.Store
}

// NewClient creates a new auth client writing to store.
func NewClient(api *apiclient.Client, store *state.Store) *Client {
	return &Client{api: api, store: store}
}

// Signup creates an account and signs in with an empty pantry.
func (c *Client) Signup(ctx context.Context, username, email, password string) (state.Session, error) {
	if !c.store.BeginLoading() {
		return state.Session{}, apiclient.ErrBusy
	}
	defer c.store.EndLoading()
	epoch := c.store.Epoch()

	resp, err := c.api.SendJSON(ctx, "auth.signup", http.MethodPost, signupPath, signupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return state.Session{}, fmt.Errorf("signup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fallback := fmt.Sprintf("signup failed: server error %d", resp.StatusCode)
		return state.Session{}, apiclient.NewStatusError(resp, apiclient.ErrServer, fallback)
	}

	var result signupResponse
	if err := apiclient.DecodeJSON(resp, &result); err != nil {
		return state.Session{}, fmt.Errorf("signup failed: %w", err)
	}

	sess := state.Session{UserID: result.UserID, Username: result.Username, Email: email, Authenticated: true}
	if !c.store.SignInAt(epoch, sess, nil) {
		return state.Session{}, fmt.Errorf("signup failed: %w", state.ErrStaleSession)
	}
	log.Printf("Signed up as %s", result.Username)
	return sess, nil
}

// Login signs in and seeds the pantry from the login response. A response
// arriving after Logout is discarded.
func (c *Client) Login(ctx context.Context, username, password string) (state.Session, error) {
	if !c.store.BeginLoading() {
		return state.Session{}, apiclient.ErrBusy
	}
	defer c.store.EndLoading()
	epoch := c.store.Epoch()

	resp, err := c.api.SendJSON(ctx, "auth.login", http.MethodPost, loginPath, loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return state.Session{}, fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return state.Session{}, apiclient.NewStatusError(resp, apiclient.ErrInvalidCredentials, "invalid credentials")
	default:
		apiclient.Drain(resp)
		return state.Session{}, &apiclient.StatusError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("server error: %d", resp.StatusCode),
			Class:   apiclient.ErrServer,
		}
	}

	var result loginResponse
	if err := apiclient.DecodeJSON(resp, &result); err != nil {
		return state.Session{}, fmt.Errorf("login failed: %w", err)
	}

	sess := state.Session{UserID: result.UserID, Username: result.Username, Email: result.Email, Authenticated: true}
	if !c.store.SignInAt(epoch, sess, result.Pantry) {
		return state.Session{}, fmt.Errorf("login failed: %w", state.ErrStaleSession)
	}
	log.Printf("Logged in as %s (%d pantry items)", result.Username, len(result.Pantry))
	return sess, nil
}

// Logout clears the local session and pantry. No request is sent.
func (c *Client) Logout() {
	c.store.SignOut()
}

// IsInvalidCredentials reports whether err is a rejected login.
func IsInvalidCredentials(err error) bool {
	return errors.Is(err, apiclient.ErrInvalidCredentials)
}
