package pantry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/state"
)

// fakeServer is a minimal pantry endpoint that keeps items in order and
// records every request it sees.
type fakeServer struct {
	mu       sync.Mutex
	items    []string
	requests []string
	userIDs  []string
	addCode  int
	delCode  int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.EscapedPath())
	f.userIDs = append(f.userIDs, r.Header.Get("X-User-ID"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/pantry":
		json.NewEncoder(w).Encode(map[string]any{"success": true, "items": f.items, "count": len(f.items)})
	case r.Method == http.MethodPost && r.URL.Path == "/api/pantry":
		if f.addCode != 0 {
			w.WriteHeader(f.addCode)
			fmt.Fprint(w, `{"success": false, "error": "already in pantry"}`)
			return
		}
		var body struct {
			Item string `json:"item"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.items = append(f.items, body.Item)
		fmt.Fprint(w, `{"success": true}`)
	case r.Method == http.MethodDelete:
		if f.delCode != 0 {
			w.WriteHeader(f.delCode)
			return
		}
		fmt.Fprint(w, `{"success": true}`)
	case r.URL.Path == "/api/health":
		fmt.Fprint(w, `{"success": true, "status": "healthy"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake http.Handler) (*Client, *state.Store) {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store := state.NewStore()
	api, err := apiclient.New(server.URL, store)
	if err != nil {
		t.Fatalf("Failed to create api client: %v", err)
	}
	return NewClient(api, store), store
}

func TestLoadItems(t *testing.T) {
	fake := &fakeServer{items: []string{"Milk", "eggs", "Bread"}}
	client, store := newTestClient(t, fake)
	store.SignIn(state.Session{UserID: "u-1"}, nil)

	items, err := client.LoadItems(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !slices.Equal(items, fake.items) {
		t.Errorf("Expected %v, got %v", fake.items, items)
	}
	if p := store.Pantry(); !slices.Equal(p.Items, fake.items) || p.Count != 3 {
		t.Errorf("Expected store to mirror server, got %+v", p)
	}
	if fake.userIDs[0] != "u-1" {
		t.Errorf("Expected X-User-ID 'u-1', got '%s'", fake.userIDs[0])
	}
}

func TestLoadItemsReplacesWholesale(t *testing.T) {
	fake := &fakeServer{items: []string{"rice"}}
	client, store := newTestClient(t, fake)
	store.ReplaceItems([]string{"stale", "local", "entries"})

	if _, err := client.LoadItems(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := store.Items(); !slices.Equal(got, []string{"rice"}) {
		t.Errorf("Expected [rice], got %v", got)
	}
}

func TestAddItemReloads(t *testing.T) {
	fake := &fakeServer{items: []string{"milk", "eggs"}}
	client, store := newTestClient(t, fake)
	store.SignIn(state.Session{UserID: "u-1"}, []string{"milk", "eggs"})

	if err := client.AddItem(context.Background(), "bread"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"milk", "eggs", "bread"}
	if got := store.Items(); !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if store.Pantry().Count != 3 {
		t.Errorf("Expected count 3, got %d", store.Pantry().Count)
	}
	wantRequests := []string{"POST /api/pantry", "GET /api/pantry"}
	if !slices.Equal(fake.requests, wantRequests) {
		t.Errorf("Expected mutation before reload %v, got %v", wantRequests, fake.requests)
	}
}

func TestAddItemKeepsServerCasing(t *testing.T) {
	fake := &fakeServer{}
	client, store := newTestClient(t, fake)

	if err := client.AddItem(context.Background(), "  Greek YOGURT "); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := store.Items(); !slices.Equal(got, []string{"  Greek YOGURT "}) {
		t.Errorf("Expected the server's list verbatim, got %q", got)
	}
}

func TestAddItemConflict(t *testing.T) {
	fake := &fakeServer{items: []string{"milk"}, addCode: http.StatusConflict}
	client, store := newTestClient(t, fake)
	store.ReplaceItems([]string{"milk"})

	err := client.AddItem(context.Background(), "Milk")
	if !errors.Is(err, apiclient.ErrInvalidResponse) {
		t.Fatalf("Expected ErrInvalidResponse class, got %v", err)
	}
	if apiclient.UserMessage(err) != "already in pantry" {
		t.Errorf("Expected server message, got '%s'", apiclient.UserMessage(err))
	}
	if len(fake.requests) != 1 {
		t.Errorf("Expected no reload after a failed add, got %v", fake.requests)
	}
	if got := store.Items(); !slices.Equal(got, []string{"milk"}) {
		t.Errorf("Expected pantry untouched, got %v", got)
	}
}

func TestDeleteItem(t *testing.T) {
	t.Run("EncodesName", func(t *testing.T) {
		fake := &fakeServer{items: []string{"a"}}
		client, _ := newTestClient(t, fake)

		if err := client.DeleteItem(context.Background(), "olive oil/extra virgin"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if fake.requests[0] != "DELETE /api/pantry/olive%20oil%2Fextra%20virgin" {
			t.Errorf("Unexpected delete path: %s", fake.requests[0])
		}
		if fake.requests[1] != "GET /api/pantry" {
			t.Errorf("Expected reload after delete, got %v", fake.requests)
		}
	})

	t.Run("MissingItemStillSucceeds", func(t *testing.T) {
		fake := &fakeServer{items: []string{"milk"}}
		client, store := newTestClient(t, fake)

		if err := client.DeleteItem(context.Background(), "caviar"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := store.Items(); !slices.Equal(got, []string{"milk"}) {
			t.Errorf("Expected [milk], got %v", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		fake := &fakeServer{delCode: http.StatusNotFound}
		client, _ := newTestClient(t, fake)

		err := client.DeleteItem(context.Background(), "caviar")
		var se *apiclient.StatusError
		if !errors.As(err, &se) || se.Status != http.StatusNotFound {
			t.Fatalf("Expected StatusError 404, got %v", err)
		}
		if se.Error() != "server error 404" {
			t.Errorf("Expected generic status message, got '%s'", se.Error())
		}
	})
}

func TestCheckHealth(t *testing.T) {
	t.Run("Online", func(t *testing.T) {
		client, store := newTestClient(t, &fakeServer{})
		if !client.CheckHealth(context.Background()) {
			t.Fatal("Expected health check to succeed")
		}
		if !store.Online() {
			t.Error("Expected store to be online")
		}
	})

	t.Run("Non200", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		if client.CheckHealth(context.Background()) {
			t.Fatal("Expected health check to fail on 503")
		}
	})

	t.Run("Unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		store := state.NewStore()
		store.SetOnline(true)
		api, _ := apiclient.New(url, store)
		client := NewClient(api, store)

		if client.CheckHealth(context.Background()) {
			t.Fatal("Expected health check to fail for a closed server")
		}
		if store.Online() {
			t.Error("Expected store to be offline")
		}
	})
}

func TestLoadItemsAfterLogoutIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		fmt.Fprint(w, `{"success": true, "items": ["secret-a", "secret-b"], "count": 2}`)
	}))
	store.SignIn(state.Session{UserID: "u-1"}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := client.LoadItems(context.Background())
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("reload never reached the server")
	}
	store.SignOut()
	close(release)

	if err := <-done; !errors.Is(err, state.ErrStaleSession) {
		t.Errorf("Expected ErrStaleSession, got %v", err)
	}
	if store.Session().Authenticated || len(store.Items()) != 0 {
		t.Errorf("Expected signed-out empty state, got session=%+v items=%v", store.Session(), store.Items())
	}
}

func TestLoadItemsUsesServerCount(t *testing.T) {
	t.Run("Reported", func(t *testing.T) {
		client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": true, "items": ["rice"], "count": 4}`)
		}))
		if _, err := client.LoadItems(context.Background()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p := store.Pantry(); p.Count != 4 {
			t.Errorf("Expected server count 4, got %d", p.Count)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		client, store := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"success": true, "items": ["rice", "beans"]}`)
		}))
		if _, err := client.LoadItems(context.Background()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if p := store.Pantry(); p.Count != 2 {
			t.Errorf("Expected count to fall back to 2, got %d", p.Count)
		}
	})
}
