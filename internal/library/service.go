package library

import (
	"log/slog"
	"sync"

	"github.com/mmcdole/librovault/internal/domain"
)

// UserSource exposes the signed-in user id. Satisfied by *session.Session.
type UserSource interface {
	UserID() (string, bool)
}

// Manager owns the canonical library collection of the signed-in user
// and the selected library.
//
// libraries is published copy-on-write: every mutation builds a fresh
// slice, so a snapshot handed out by Libraries is never modified.
type Manager struct {
	repo    domain.LibraryRepository
	store   domain.Store
	session UserSource
	logger  *slog.Logger

	mu          sync.RWMutex
	libraries   []domain.Library
	selectedKey string
}

// NewManager creates a library manager. store may be nil to disable the local cache.
func NewManager(repo domain.LibraryRepository, store domain.Store, session UserSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:      repo,
		store:     store,
		session:   session,
		logger:    logger,
		libraries: []domain.Library{},
	}
}

// Reset clears the collection and the selection, used on sign-out.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.libraries = []domain.Library{}
	m.selectedKey = ""
	m.mu.Unlock()
	m.logger.Debug("reset library collection")
}

// SelectLibrary marks lib as the selected library.
// lib must belong to the current collection.
func (m *Manager) SelectLibrary(lib domain.Library) error {
	key := lib.Key()

	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.libraries, key) < 0 {
		return domain.ErrLibraryNotFound
	}
	m.selectedKey = key
	return nil
}

// ClearSelection deselects the current library
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.selectedKey = ""
	m.mu.Unlock()
}

// UpdateBooks replaces the book list of the library identified by key
// with the result of fn. fn receives a private copy it may modify freely.
func (m *Manager) UpdateBooks(key string, fn func(books []*domain.Book) []*domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.libraries, key)
	if i < 0 {
		return domain.ErrLibraryNotFound
	}

	updated := m.libraries[i].Clone()
	if updated.Books == nil {
		updated.Books = []*domain.Book{}
	}
	updated.Books = fn(updated.Books)

	m.libraries = replaceAt(m.libraries, i, updated)
	m.persistLocked()
	return nil
}

// --- Private helpers ---

// currentUser returns the session user or ErrNoSession
func (m *Manager) currentUser() (string, error) {
	if m.session == nil {
		return "", domain.ErrNoSession
	}
	userID, ok := m.session.UserID()
	if !ok {
		return "", domain.ErrNoSession
	}
	return userID, nil
}

// persistLocked writes the collection to the local cache. Caller holds mu.
func (m *Manager) persistLocked() {
	if m.store == nil {
		return
	}
	userID, err := m.currentUser()
	if err != nil {
		return
	}
	if err := m.store.SaveLibraries(userID, m.libraries); err != nil {
		m.logger.Error("failed to save libraries", "error", err, "userID", userID)
	}
}

func indexOf(libs []domain.Library, key string) int {
	if key == "" {
		return -1
	}
	for i := range libs {
		if libs[i].Key() == key {
			return i
		}
	}
	return -1
}

// replaceAt returns a fresh slice with libs[i] replaced
func replaceAt(libs []domain.Library, i int, lib domain.Library) []domain.Library {
	next := make([]domain.Library, len(libs))
	copy(next, libs)
	next[i] = lib
	return next
}

// removeAt returns a fresh slice without libs[i]
func removeAt(libs []domain.Library, i int) []domain.Library {
	next := make([]domain.Library, 0, len(libs)-1)
	next = append(next, libs[:i]...)
	return append(next, libs[i+1:]...)
}

// adopt prepares a server library for the collection of userID.
// It reports false when the library belongs to someone else.
func adopt(lib domain.Library, userID string) (domain.Library, bool) {
	if lib.OwnerUserID == "" {
		lib.OwnerUserID = userID
	}
	if lib.OwnerUserID != userID {
		return lib, false
	}
	if lib.LocalKey == "" {
		lib.LocalKey = domain.NewLocalKey()
	}
	lib = lib.Clone()
	if lib.Books == nil {
		lib.Books = []*domain.Book{}
	}
	for i, b := range lib.Books {
		if b != nil && b.LocalKey == "" {
			withKey := *b
			withKey.LocalKey = domain.NewLocalKey()
			lib.Books[i] = &withKey
		}
	}
	return lib, true
}
