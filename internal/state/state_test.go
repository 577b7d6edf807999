package state

import (
	"slices"
	"sync"
	"testing"
)

func TestStoreSignInAndOut(t *testing.T) {
	s := NewStore()

	if _, ok := s.UserID(); ok {
		t.Fatal("expected no user id before sign in")
	}

	s.SignIn(Session{UserID: "u1", Username: "alice", Email: "a@example.com"}, []string{"milk", "eggs"})

	id, ok := s.UserID()
	if !ok || id != "u1" {
		t.Fatalf("expected user id u1, got %q (ok=%v)", id, ok)
	}
	if !s.Session().Authenticated {
		t.Fatal("expected session to be authenticated")
	}
	if got := s.Items(); !slices.Equal(got, []string{"milk", "eggs"}) {
		t.Fatalf("expected seeded pantry, got %v", got)
	}

	s.SignOut()

	if _, ok := s.UserID(); ok {
		t.Fatal("expected no user id after sign out")
	}
	if p := s.Pantry(); len(p.Items) != 0 || p.Count != 0 {
		t.Fatalf("expected empty pantry after sign out, got %+v", p)
	}
}

func TestStoreSnapshotsAreCopies(t *testing.T) {
	s := NewStore()
	s.ReplaceItems([]string{"rice"})

	items := s.Items()
	items[0] = "changed"

	if got := s.Items(); got[0] != "rice" {
		t.Fatalf("snapshot mutation leaked into store: %v", got)
	}
}

func TestStoreObservers(t *testing.T) {
	s := NewStore()

	var mu sync.Mutex
	var kinds []EventKind
	var lastPantry Pantry
	unsubscribe := s.Subscribe(ObserverFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind)
		if e.Kind == PantryChanged {
			lastPantry = e.Pantry
		}
	}))

	s.ReplaceItems([]string{"a", "b"})
	s.SetOnline(true)
	s.SetOnline(true) // no change, no event

	mu.Lock()
	if !slices.Equal(kinds, []EventKind{PantryChanged, ConnectivityChanged}) {
		t.Fatalf("unexpected events: %v", kinds)
	}
	if lastPantry.Count != 2 {
		t.Fatalf("expected pantry count 2 in event, got %d", lastPantry.Count)
	}
	mu.Unlock()

	unsubscribe()
	s.ReplaceItems(nil)

	mu.Lock()
	defer mu.Unlock()
	if len(kinds) != 2 {
		t.Fatalf("expected no events after unsubscribe, got %v", kinds)
	}
}

func TestStoreLoadingGuard(t *testing.T) {
	s := NewStore()

	if !s.BeginLoading() {
		t.Fatal("expected first BeginLoading to succeed")
	}
	if s.BeginLoading() {
		t.Fatal("expected second BeginLoading to be rejected")
	}
	if !s.Loading() {
		t.Fatal("expected loading flag to be set")
	}
	s.EndLoading()
	if !s.BeginLoading() {
		t.Fatal("expected BeginLoading to succeed after EndLoading")
	}
}

func TestStoreEpochDropsStaleResponses(t *testing.T) {
	s := NewStore()
	s.SignIn(Session{UserID: "u1"}, []string{"milk"})

	epoch := s.Epoch()
	if !s.ReplacePantry(epoch, Pantry{Items: []string{"milk", "eggs"}, Count: 2}) {
		t.Fatal("expected current-epoch response to apply")
	}

	s.SignOut()
	if s.ReplacePantry(epoch, Pantry{Items: []string{"secret"}, Count: 1}) {
		t.Fatal("expected response from before sign out to be dropped")
	}
	if p := s.Pantry(); len(p.Items) != 0 || p.Count != 0 {
		t.Fatalf("expected empty pantry after sign out, got %+v", p)
	}

	if s.SignInAt(epoch, Session{UserID: "u1"}, []string{"secret"}) {
		t.Fatal("expected login from before sign out to be dropped")
	}
	if s.Session().Authenticated {
		t.Fatal("expected to stay signed out")
	}
}

func TestStoreReplacePantryKeepsServerCount(t *testing.T) {
	s := NewStore()
	s.ReplacePantry(s.Epoch(), Pantry{Items: []string{"a", "b"}, Count: 5})
	if p := s.Pantry(); p.Count != 5 || len(p.Items) != 2 {
		t.Fatalf("expected server count 5 with 2 items, got %+v", p)
	}
}
