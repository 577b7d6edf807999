// Package server is the reference pantry HTTP API that the clients talk to.
package server

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"smart-pantry/internal/recipe"
	"smart-pantry/internal/shared"
	"smart-pantry/internal/storage"
)

const (
	headerClientType  = "X-Client-Type"
	headerUserID      = "X-User-ID"
	defaultClientType = "web"
	maxUploadBytes    = 10 << 20
)

// Accounts is the persistence the server needs. *storage.AccountStore
// implements it.
type Accounts interface {
	Create(ctx context.Context, username, email, password, clientType string) (storage.Account, error)
	Authenticate(ctx context.Context, login, password string) (storage.Account, error)
	Get(ctx context.Context, id string) (storage.Account, error)
	Pantry(ctx context.Context, userID string) ([]string, error)
	SetPantry(ctx context.Context, userID string, items []string) error
}

// Detector finds food names in a photo.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]string, shared.TokenUsage, error)
}

// Suggester proposes recipes for a list of ingredients.
type Suggester interface {
	Suggest(ctx context.Context, items []string) ([]recipe.Recipe, shared.TokenUsage, error)
}

// Recorder persists per-request metrics. *metrics.Store implements it.
type Recorder interface {
	RecordMeta(meta shared.CallMeta) error
}

// Option configures the Server.
type Option func(*Server)

// WithDetector enables photo uploads.
func WithDetector(d Detector) Option {
	return func(s *Server) {
		s.detector = d
	}
}

// WithSuggester enables AI recipe suggestions. Without one the fallback
// recipes are returned.
func WithSuggester(sg Suggester) Option {
	return func(s *Server) {
		s.suggester = sg
	}
}

// WithMetrics records every request.
func WithMetrics(r Recorder) Option {
	return func(s *Server) {
		s.metrics = r
	}
}

// Server serves the pantry API.
type Server struct {
	accounts  Accounts
	tokens    *TokenManager
	detector  Detector
	suggester Suggester
	metrics   Recorder

	// mu serializes pantry read-modify-write cycles. Anonymous pantries are
	// kept in memory per client type and are lost on restart.
	mu   sync.Mutex
	anon map[string][]string
}

// New creates a Server.
func New(accounts Accounts, tokens *TokenManager, opts ...Option) *Server {
	s := &Server{
		accounts: accounts,
		tokens:   tokens,
		anon:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the route table. Paths are matched encoded so item names
// may contain "/".
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.recordMetrics)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet).Name("health")
	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost).Name("auth.signup")
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost).Name("auth.login")
	api.HandleFunc("/pantry", s.handleListPantry).Methods(http.MethodGet).Name("pantry.load")
	api.HandleFunc("/pantry", s.handleAddItem).Methods(http.MethodPost).Name("pantry.add")
	api.HandleFunc("/pantry/{item}", s.handleDeleteItem).Methods(http.MethodDelete).Name("pantry.delete")
	api.HandleFunc("/upload_photo", s.handleUploadPhoto).Methods(http.MethodPost).Name("ingest.upload")
	api.HandleFunc("/recipes/suggest", s.handleSuggestRecipes).Methods(http.MethodPost).Name("recipes.suggest")
	api.HandleFunc("/recipes/fallback", s.handleFallbackRecipes).Methods(http.MethodGet).Name("recipes.fallback")
	return r
}

func (s *Server) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		op := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			op = "server." + route.GetName()
		}
		s.record(shared.CallMeta{Operation: op, StatusCode: rec.status, Latency: time.Since(start)})
	})
}

func (s *Server) record(meta shared.CallMeta) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordMeta(meta); err != nil {
		log.Printf("Warning: failed to record metrics for %s: %v", meta.Operation, err)
	}
}

// owner identifies whose pantry a request addresses.
type owner struct {
	userID     string
	clientType string
}

func (s *Server) loadPantry(ctx context.Context, o owner) ([]string, error) {
	if o.userID == "" {
		items := s.anon[o.clientType]
		if items == nil {
			return []string{}, nil
		}
		return append([]string(nil), items...), nil
	}
	return s.accounts.Pantry(ctx, o.userID)
}

func (s *Server) savePantry(ctx context.Context, o owner, items []string) error {
	if o.userID == "" {
		s.anon[o.clientType] = items
		return nil
	}
	return s.accounts.SetPantry(ctx, o.userID, items)
}
