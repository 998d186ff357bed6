// Package session holds the identity of the signed-in user.
package session

import "sync"

// Observer is called after every user transition.
// prev or next is empty when the session was, or became, signed out.
type Observer func(prev, next string)

// Session holds the signed-in user's identifier.
// It performs no validation; the auth service is trusted.
type Session struct {
	mu        sync.RWMutex
	userID    string
	username  string
	observers []Observer
}

// New creates an empty (signed-out) session
func New() *Session {
	return &Session{}
}

// UserID returns the signed-in user id, or false when signed out
func (s *Session) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// Username returns the display name of the signed-in user
func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.username
}

// SignedIn reports whether a user id is present
func (s *Session) SignedIn() bool {
	_, ok := s.UserID()
	return ok
}

// SetUserID sets the signed-in user. Setting an empty id signs out.
func (s *Session) SetUserID(userID string) {
	s.set(userID, "")
}

// SetUser sets the signed-in user id and display name
func (s *Session) SetUser(userID, username string) {
	s.set(userID, username)
}

// Clear signs the user out
func (s *Session) Clear() {
	s.set("", "")
}

// Watch registers an observer for user transitions
func (s *Session) Watch(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) set(userID, username string) {
	s.mu.Lock()
	prev := s.userID
	s.userID = userID
	if userID == "" {
		username = ""
	}
	s.username = username
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	if prev == userID {
		return
	}
	// Notify outside the lock so observers may read the session
	for _, fn := range observers {
		fn(prev, userID)
	}
}
