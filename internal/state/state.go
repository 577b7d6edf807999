// Package state holds the in-memory session and pantry view shared by the
// pantry clients. Each client writes only its own part; front-ends read
// snapshots and subscribe to change events.
package state

import (
	"errors"
	"slices"
	"sync"
)

// ErrStaleSession is returned when a response arrives after the session it
// was requested for has been replaced or signed out.
var ErrStaleSession = errors.New("session changed while the request was in flight")

// Session is the authenticated identity attached to outgoing requests.
type Session struct {
	UserID        string
	Username      string
	Email         string
	Authenticated bool
}

// Pantry is the last server-confirmed pantry list. Count is the server's
// count, which may differ from len(Items) only if the server says so.
type Pantry struct {
	Items []string
	Count int
}

// EventKind identifies which part of the store changed.
type EventKind int

const (
	SessionChanged EventKind = iota
	PantryChanged
	ConnectivityChanged
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case SessionChanged:
		return "session"
	case PantryChanged:
		return "pantry"
	case ConnectivityChanged:
		return "connectivity"
	default:
		return "unknown"
	}
}

// Event is delivered to observers after a change has been applied.
type Event struct {
	Kind    EventKind
	Session Session
	Pantry  Pantry
	Online  bool
}

// Observer receives store changes.
type Observer interface {
	StateChanged(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// StateChanged calls f(e).
func (f ObserverFunc) StateChanged(e Event) { f(e) }

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	session Session
	pantry  Pantry
	online  bool
	loading bool
	// epoch increments on every sign in and sign out.
	epoch uint64

	obsMu     sync.Mutex
	nextID    int
	observers map[int]Observer
}

// NewStore creates an empty, unauthenticated store.
func NewStore() *Store {
	return &Store{observers: make(map[int]Observer)}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = o
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// UserID returns the identity header value, if a session is active.
func (s *Store) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.session.Authenticated || s.session.UserID == "" {
		return "", false
	}
	return s.session.UserID, true
}

// Pantry returns a copy of the pantry view.
func (s *Store) Pantry() Pantry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Pantry{Items: slices.Clone(s.pantry.Items), Count: s.pantry.Count}
}

// Items is shorthand for Pantry().Items.
func (s *Store) Items() []string {
	return s.Pantry().Items
}

// Online reports the last known connectivity result.
func (s *Store) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// Epoch identifies the current session. Capture it before sending a request
// and pass it back when applying the response.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// SignIn installs a new session and seeds the pantry with items.
func (s *Store) SignIn(sess Session, items []string) {
	s.SignInAt(s.Epoch(), sess, items)
}

// SignInAt is SignIn for a login that started at epoch. It does nothing and
// returns false if the session changed in the meantime.
func (s *Store) SignInAt(epoch uint64, sess Session, items []string) bool {
	sess.Authenticated = true
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.epoch++
	s.session = sess
	s.pantry = Pantry{Items: slices.Clone(items), Count: len(items)}
	s.mu.Unlock()

	s.publish(SessionChanged)
	s.publish(PantryChanged)
	return true
}

// SignOut clears the session and the pantry. Responses to requests started
// before it are dropped.
func (s *Store) SignOut() {
	s.mu.Lock()
	s.epoch++
	s.session = Session{}
	s.pantry = Pantry{}
	s.mu.Unlock()

	s.publish(SessionChanged)
	s.publish(PantryChanged)
}

// ReplaceItems overwrites the pantry with items, whatever the session.
func (s *Store) ReplaceItems(items []string) {
	s.mu.Lock()
	s.pantry = Pantry{Items: slices.Clone(items), Count: len(items)}
	s.mu.Unlock()

	s.publish(PantryChanged)
}

// ReplacePantry overwrites the pantry with a server response fetched at
// epoch. The whole list is replaced; nothing is merged. A response for an
// earlier session is dropped and false is returned.
func (s *Store) ReplacePantry(epoch uint64, p Pantry) bool {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return false
	}
	s.pantry = Pantry{Items: slices.Clone(p.Items), Count: p.Count}
	s.mu.Unlock()

	s.publish(PantryChanged)
	return true
}

// SetOnline records a connectivity result.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()

	if changed {
		s.publish(ConnectivityChanged)
	}
}

// BeginLoading sets the auth loading flag. It returns false if a request is
// already in flight.
func (s *Store) BeginLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

// EndLoading clears the auth loading flag.
func (s *Store) EndLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// Loading reports whether an auth request is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) publish(kind EventKind) {
	s.mu.RLock()
	e := Event{
		Kind:    kind,
		Session: s.session,
		Pantry:  Pantry{Items: slices.Clone(s.pantry.Items), Count: s.pantry.Count},
		Online:  s.online,
	}
	s.mu.RUnlock()

	s.obsMu.Lock()
	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.obsMu.Unlock()

	for _, o := range observers {
		o.StateChanged(e)
	}
}
