package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"smart-pantry/internal/recipe"
	"smart-pantry/internal/shared"
	"smart-pantry/internal/storage"
)

const minPasswordLength = 6

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

type pantryResponse struct {
	Success bool     `json:"success"`
	Items   []string `json:"items"`
	Count   int      `json:"count"`
}

type mutationResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Item       string `json:"item,omitempty"`
	TotalItems int    `json:"total_items"`
}

type uploadResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Items      []string `json:"items"`
	TotalItems int      `json:"total_items"`
}

type suggestRequest struct {
	PantryItems *[]string `json:"pantry_items"`
}

type suggestResponse struct {
	Success         bool            `json:"success"`
	Recipes         []recipe.Recipe `json:"recipes"`
	PantryItemsUsed []string        `json:"pantry_items_used,omitempty"`
	Source          string          `json:"source"`
}

type healthResponse struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	PantryItems int    `json:"pantry_items"`
	AIAvailable bool   `json:"ai_available"`
}

func clientType(r *http.Request) string {
	if ct := strings.TrimSpace(r.Header.Get(headerClientType)); ct != "" {
		return ct
	}
	return defaultClientType
}

// resolveOwner verifies X-User-ID when present. A failure has already been
// written to w.
func (s *Server) resolveOwner(w http.ResponseWriter, r *http.Request) (owner, bool) {
	o := owner{clientType: clientType(r)}
	token := strings.TrimSpace(r.Header.Get(headerUserID))
	if token == "" {
		return o, true
	}

	accountID, err := s.tokens.Verify(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid user id")
		return o, false
	}
	if _, err := s.accounts.Get(r.Context(), accountID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unknown user")
		} else {
			log.Printf("Error loading account %s: %v", accountID, err)
			writeError(w, http.StatusInternalServerError, "Failed to load account")
		}
		return o, false
	}
	o.userID = accountID
	return o, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	password := strings.TrimSpace(req.Password)

	if username == "" || email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}
	if len(password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		return
	}

	acc, err := s.accounts.Create(r.Context(), username, email, password, clientType(r))
	if errors.Is(err, storage.ErrAccountExists) {
		writeError(w, http.StatusConflict, "Username or email already exists")
		return
	}
	if err != nil {
		log.Printf("Error creating account for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := s.tokens.Generate(acc.ID)
	if err != nil {
		log.Printf("Error issuing user id for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	log.Printf("Created account %s (%s)", acc.Username, acc.ClientType)
	writeJSON(w, http.StatusOK, signupResponse{
		Success:  true,
		Message:  "Account created successfully",
		UserID:   token,
		Username: acc.Username,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}
	username := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	acc, err := s.accounts.Authenticate(r.Context(), username, password)
	if errors.Is(err, storage.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		log.Printf("Error authenticating %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	pantry, err := s.accounts.Pantry(r.Context(), acc.ID)
	if err != nil {
		log.Printf("Error loading pantry for %s: %v", acc.ID, err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	token, err := s.tokens.Generate(acc.ID)
	if err != nil {
		log.Printf("Error issuing user id for %s: %v", acc.ID, err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:  true,
		Message:  "Login successful",
		UserID:   token,
		Username: acc.Username,
		Email:    acc.Email,
		Pantry:   pantry,
	})
}

func (s *Server) handleListPantry(w http.ResponseWriter, r *http.Request) {
	o, ok := s.resolveOwner(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	items, err := s.loadPantry(r.Context(), o)
	s.mu.Unlock()
	if err != nil {
		log.Printf("Error loading pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load pantry")
		return
	}

	writeJSON(w, http.StatusOK, pantryResponse{Success: true, Items: items, Count: len(items)})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item *string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Item == nil {
		writeError(w, http.StatusBadRequest, "Item name required")
		return
	}
	item := strings.TrimSpace(*req.Item)
	if item == "" {
		writeError(w, http.StatusBadRequest, "Item name cannot be empty")
		return
	}

	o, ok := s.resolveOwner(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadPantry(r.Context(), o)
	if err != nil {
		log.Printf("Error loading pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load pantry")
		return
	}
	for _, existing := range items {
		if strings.EqualFold(existing, item) {
			writeError(w, http.StatusConflict, fmt.Sprintf("%q is already in pantry", item))
			return
		}
	}

	items = append(items, item)
	if err := s.savePantry(r.Context(), o, items); err != nil {
		log.Printf("Error saving pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save pantry")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Success:    true,
		Message:    fmt.Sprintf("Added %q to pantry", item),
		Item:       item,
		TotalItems: len(items),
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	item, err := url.PathUnescape(mux.Vars(r)["item"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid item name")
		return
	}

	o, ok := s.resolveOwner(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadPantry(r.Context(), o)
	if err != nil {
		log.Printf("Error loading pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load pantry")
		return
	}

	idx := -1
	for i, existing := range items {
		if existing == item {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%q not found in pantry", item))
		return
	}

	items = append(items[:idx], items[idx+1:]...)
	if err := s.savePantry(r.Context(), o, items); err != nil {
		log.Printf("Error saving pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save pantry")
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Success:    true,
		Message:    fmt.Sprintf("Removed %q from pantry", item),
		TotalItems: len(items),
	})
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No photo uploaded")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No photo selected")
		return
	}

	o, ok := s.resolveOwner(w, r)
	if !ok {
		return
	}
	if s.detector == nil {
		writeError(w, http.StatusServiceUnavailable, "Photo analysis is not configured")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read photo")
		return
	}

	start := time.Now()
	detected, usage, err := s.detector.Detect(r.Context(), data)
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	s.record(shared.CallMeta{Operation: "llm.detect", StatusCode: status, Usage: usage, Latency: time.Since(start)})
	if err != nil {
		log.Printf("Error analyzing photo: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error analyzing photo: %v", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadPantry(r.Context(), o)
	if err != nil {
		log.Printf("Error loading pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load pantry")
		return
	}
	// Detected items are appended as-is, duplicates included.
	items = append(items, detected...)
	if err := s.savePantry(r.Context(), o, items); err != nil {
		log.Printf("Error saving pantry: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save pantry")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		Message:    fmt.Sprintf("Successfully analyzed photo! Added %d items", len(detected)),
		Items:      detected,
		TotalItems: len(items),
	})
}

func (s *Server) handleSuggestRecipes(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request data")
		return
	}

	var items []string
	if req.PantryItems != nil {
		items = *req.PantryItems
	} else {
		o, ok := s.resolveOwner(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		stored, err := s.loadPantry(r.Context(), o)
		s.mu.Unlock()
		if err != nil {
			log.Printf("Error loading pantry: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load pantry")
			return
		}
		items = stored
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "No items in pantry")
		return
	}

	if s.suggester == nil {
		writeJSON(w, http.StatusOK, suggestResponse{Success: true, Recipes: FallbackRecipes(), PantryItemsUsed: items, Source: "fallback"})
		return
	}

	start := time.Now()
	recipes, usage, err := s.suggester.Suggest(r.Context(), items)
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
	}
	s.record(shared.CallMeta{Operation: "llm.suggest", StatusCode: status, Usage: usage, Latency: time.Since(start)})
	if err != nil {
		log.Printf("Error generating recipes: %v", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate recipes: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, suggestResponse{Success: true, Recipes: recipes, PantryItemsUsed: items, Source: "ai"})
}

func (s *Server) handleFallbackRecipes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, suggestResponse{Success: true, Recipes: FallbackRecipes(), Source: "fallback"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	o, ok := s.resolveOwner(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	items, err := s.loadPantry(r.Context(), o)
	s.mu.Unlock()
	if err != nil {
		log.Printf("Warning: health check could not load pantry: %v", err)
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Success:     true,
		Status:      "healthy",
		PantryItems: len(items),
		AIAvailable: s.suggester != nil || s.detector != nil,
	})
}
