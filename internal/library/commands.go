package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/librovault/internal/domain"
)

// Operations that hit the library store. Local state changes only after
// the server confirms; on failure the collection keeps the server's last
// known truth.

// Load fetches all libraries of the signed-in user and replaces the
// collection wholesale. The selection is re-resolved by key, else cleared.
func (m *Manager) Load(ctx context.Context) ([]domain.Library, error) {
	userID, err := m.currentUser()
	if err != nil {
		return nil, err
	}

	fetched, err := m.repo.GetLibraries(ctx, userID)
	if err != nil {
		m.logger.Error("failed to fetch libraries", "error", err, "userID", userID)
		if errors.Is(err, domain.ErrNotFound) && m.store != nil {
			// The server no longer knows this user
			m.store.InvalidateUser(userID)
		}
		return nil, err
	}

	libs := make([]domain.Library, 0, len(fetched))
	for _, lib := range fetched {
		owned, ok := adopt(lib, userID)
		if !ok {
			m.logger.Warn("dropping library owned by another user",
				"libID", lib.ID, "owner", lib.OwnerUserID, "userID", userID)
			continue
		}
		libs = append(libs, owned)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The user may have signed out or switched while the request was in flight
	if current, err := m.currentUser(); err != nil || current != userID {
		m.logger.Debug("discarding libraries for stale session", "userID", userID)
		return nil, domain.ErrNoSession
	}

	m.libraries = libs
	if indexOf(libs, m.selectedKey) < 0 {
		m.selectedKey = ""
	}
	m.persistLocked()

	m.logger.Debug("fetched libraries", "count", len(libs), "userID", userID)
	return libs, nil
}

// AddLibrary creates a library on the server and appends the server's
// representation to the collection.
func (m *Manager) AddLibrary(ctx context.Context, name string) (domain.Library, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Library{}, &domain.ValidationError{
			Fields:  []string{"name"},
			Message: "library name cannot be empty",
		}
	}
	userID, err := m.currentUser()
	if err != nil {
		return domain.Library{}, err
	}

	created, err := m.repo.CreateLibrary(ctx, userID, name)
	if err != nil {
		m.logger.Error("failed to create library", "error", err, "name", name)
		return domain.Library{}, err
	}
	if created.ID == "" {
		m.logger.Error("library store returned library without id", "name", name)
		return domain.Library{}, fmt.Errorf("create library %q: %w", name, domain.ErrMissingID)
	}

	lib, ok := adopt(*created, userID)
	if !ok {
		return domain.Library{}, fmt.Errorf("create library %q: owned by %q: %w",
			name, created.OwnerUserID, domain.ErrLibraryNotFound)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if current, err := m.currentUser(); err != nil || current != userID {
		return domain.Library{}, domain.ErrNoSession
	}

	next := make([]domain.Library, 0, len(m.libraries)+1)
	next = append(next, m.libraries...)
	m.libraries = append(next, lib)
	m.persistLocked()

	m.logger.Info("created library", "libID", lib.ID, "name", lib.Name)
	return lib, nil
}

// RenameLibrary renames the selected library.
// Books are kept from the local copy when the server omits them.
func (m *Manager) RenameLibrary(ctx context.Context, newName string) (domain.Library, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return domain.Library{}, &domain.ValidationError{
			Fields:  []string{"name"},
			Message: "library name cannot be empty",
		}
	}

	selected, ok := m.Selected()
	if !ok {
		return domain.Library{}, domain.ErrNoSelection
	}
	if selected.ID == "" {
		return domain.Library{}, fmt.Errorf("rename library %q: %w", selected.Name, domain.ErrMissingID)
	}

	renamed, err := m.repo.RenameLibrary(ctx, selected.ID, newName)
	if err != nil {
		m.logger.Error("failed to rename library", "error", err, "libID", selected.ID)
		return domain.Library{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	oldKey := selected.Key()
	i := indexOf(m.libraries, oldKey)
	if i < 0 {
		// Deleted or reloaded away while the request was in flight
		return domain.Library{}, domain.ErrLibraryNotFound
	}

	updated := m.libraries[i].Clone()
	if renamed.ID != "" {
		updated.ID = renamed.ID
	}
	updated.Name = renamed.Name
	if updated.Name == "" {
		updated.Name = newName
	}
	if len(renamed.Books) > 0 {
		if adopted, ok := adopt(*renamed, updated.OwnerUserID); ok {
			updated.Books = adopted.Books
		}
	}

	m.libraries = replaceAt(m.libraries, i, updated)
	if m.selectedKey == oldKey {
		m.selectedKey = updated.Key()
	}
	m.persistLocked()

	m.logger.Info("renamed library", "libID", updated.ID, "name", updated.Name)
	return updated, nil
}

// DeleteLibrary deletes the selected library. Only after the server
// confirms is it removed and the selection cleared.
func (m *Manager) DeleteLibrary(ctx context.Context) error {
	selected, ok := m.Selected()
	if !ok {
		return domain.ErrNoSelection
	}
	if selected.ID == "" {
		return fmt.Errorf("delete library %q: %w", selected.Name, domain.ErrMissingID)
	}

	if err := m.repo.DeleteLibrary(ctx, selected.ID); err != nil {
		m.logger.Error("failed to delete library", "error", err, "libID", selected.ID)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := selected.Key()
	if i := indexOf(m.libraries, key); i >= 0 {
		m.libraries = removeAt(m.libraries, i)
	}
	if m.selectedKey == key {
		m.selectedKey = ""
	}
	m.persistLocked()

	m.logger.Info("deleted library", "libID", selected.ID)
	return nil
}
