package state

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// AddressBook persists the saved delivery addresses across sessions.
// Implementations must tolerate an empty backing store.
type AddressBook interface {
	Load() ([]string, error)
	Save(addresses []string) error
}

// Store owns a State and serializes every mutation through Reduce.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	state State

	subs    map[int]func(State)
	nextSub int

	addresses AddressBook

	// now stamps new cart lines; injectable for tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithAddressBook wires durable address persistence. The book is read
// once at construction and written after every address change.
func WithAddressBook(book AddressBook) Option {
	return func(s *Store) { s.addresses = book }
}

// WithClock overrides the cart line ID clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store with an empty state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		subs: make(map[int]func(State)),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.addresses != nil {
		saved, err := s.addresses.Load()
		if err != nil {
			log.Printf("ERROR: load address book: %v", err)
		} else {
			s.state.Addresses = saved
		}
	}
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch reduces one action and notifies subscribers with the new
// state. On error the state is unchanged and nobody is notified.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()

	if add, ok := action.(AddToCart); ok && add.LineID == "" {
		add.LineID = fmt.Sprintf("%d", s.now().UnixNano())
		action = add
	}

	next, err := Reduce(s.state, action)
	if err != nil {
		s.mu.Unlock()
		return s.state, err
	}
	changedAddresses := len(next.Addresses) != len(s.state.Addresses) ||
		(len(next.Addresses) > 0 && len(s.state.Addresses) > 0 && next.Addresses[0] != s.state.Addresses[0])
	s.state = next

	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if changedAddresses && s.addresses != nil {
		if err := s.addresses.Save(next.Addresses); err != nil {
			log.Printf("ERROR: save address book: %v", err)
		}
	}

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// Subscribe registers fn to run after every successful dispatch. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
