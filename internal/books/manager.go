// Package books manages the books of the selected library: the editor
// form, create/update/delete against the library store, and the derived
// search/sort view.
package books

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/mmcdole/librovault/internal/domain"
)

// Repository is the slice of the library store the book manager needs
type Repository interface {
	domain.BookRepository
	AddBookToLibrary(ctx context.Context, libraryID, bookID string) error
	RemoveBookFromLibrary(ctx context.Context, libraryID, bookID string) error
}

// Libraries gives access to the selected library and its book list.
// Satisfied by *library.Manager.
type Libraries interface {
	Selected() (domain.Library, bool)
	UpdateBooks(key string, fn func(books []*domain.Book) []*domain.Book) error
}

// Option configures a Manager
type Option func(*Manager)

// WithLocale sets the collation locale for sorted views
func WithLocale(tag language.Tag) Option {
	return func(m *Manager) {
		m.locale = tag
	}
}

// WithSortMethod sets the initial sort method
func WithSortMethod(method SortMethod) Option {
	return func(m *Manager) {
		m.sortMethod = method
	}
}

// Manager owns the book editor state and book mutations of the selected library.
// Every mutation of a library's books is applied only after the server confirms.
type Manager struct {
	repo      Repository
	libraries Libraries
	logger    *slog.Logger
	locale    language.Tag

	mu         sync.RWMutex
	form       domain.BookFields
	editing    *domain.Book // nil in create mode
	searchTerm string
	sortMethod SortMethod
}

// NewManager creates a book manager
func NewManager(repo Repository, libraries Libraries, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		repo:       repo,
		libraries:  libraries,
		logger:     logger,
		locale:     language.Und,
		sortMethod: SortDefault,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// === Editor state ===

// Form returns the current editor fields
func (m *Manager) Form() domain.BookFields {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.form
}

// SetForm replaces all editor fields
func (m *Manager) SetForm(f domain.BookFields) {
	m.mu.Lock()
	m.form = f
	m.mu.Unlock()
}

// SetField sets one editor field by name
func (m *Manager) SetField(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := &m.form
	switch strings.ToLower(name) {
	case "title":
		f.Title = value
	case "author":
		f.Author = value
	case "genre":
		f.Genre = value
	case "translator":
		f.Translator = value
	case "publicationdate", "date":
		f.PublicationDate = value
	case "edition":
		f.Edition = value
	case "volumenumber", "volume":
		f.VolumeNumber = value
	case "subgenre":
		f.Subgenre = value
	case "isbn":
		f.ISBN = value
	default:
		return fmt.Errorf("unknown book field %q", name)
	}
	return nil
}

// Editing returns the book being edited, if in edit mode
func (m *Manager) Editing() (*domain.Book, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editing, m.editing != nil
}

// EditButton enters edit mode for book, copying its fields into the form.
func (m *Manager) EditButton(book *domain.Book) {
	if book == nil {
		return
	}
	m.mu.Lock()
	m.form = book.BookFields
	m.editing = book
	m.mu.Unlock()
}

// CancelEdit leaves edit mode and clears the form
func (m *Manager) CancelEdit() {
	m.ResetForm()
}

// ResetForm clears the form and returns to create mode
func (m *Manager) ResetForm() {
	m.mu.Lock()
	m.form = domain.BookFields{}
	m.editing = nil
	m.mu.Unlock()
}

// === View ===

// Search sets the title filter of the derived view
func (m *Manager) Search(term string) {
	m.mu.Lock()
	m.searchTerm = term
	m.mu.Unlock()
}

// SearchTerm returns the current title filter
func (m *Manager) SearchTerm() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchTerm
}

// SetSortMethod changes the ordering of the derived view
func (m *Manager) SetSortMethod(method SortMethod) {
	m.mu.Lock()
	m.sortMethod = method
	m.mu.Unlock()
}

// SortMethod returns the current ordering
func (m *Manager) SortMethod() SortMethod {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortMethod
}

// Books returns the filtered and sorted books of the selected library.
// Returns nil when no library is selected.
func (m *Manager) Books() []*domain.Book {
	lib, ok := m.libraries.Selected()
	if !ok {
		return nil
	}
	m.mu.RLock()
	term, method := m.searchTerm, m.sortMethod
	m.mu.RUnlock()
	return Derive(lib.Books, term, method, m.locale)
}

// === Remote operations ===

// AddBook creates a book from the form and links it to the selected library.
// The book is appended locally only after both requests succeed.
func (m *Manager) AddBook(ctx context.Context) (*domain.Book, error) {
	fields := m.Form()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	lib, err := m.selectedWithID("add book")
	if err != nil {
		return nil, err
	}

	created, err := m.repo.CreateBook(ctx, fields)
	if err != nil {
		m.logger.Error("failed to create book", "error", err, "title", fields.Title)
		return nil, err
	}
	if created.ID == "" {
		m.logger.Error("library store returned book without id", "title", fields.Title)
		return nil, fmt.Errorf("create book %q: %w", fields.Title, domain.ErrMissingID)
	}

	if err := m.repo.AddBookToLibrary(ctx, lib.ID, created.ID); err != nil {
		// The book record exists but belongs to no library
		m.logger.Error("failed to link book to library",
			"error", err, "libID", lib.ID, "orphanBookID", created.ID)
		return nil, fmt.Errorf("link book %s to library %s: %w", created.ID, lib.ID, err)
	}

	book := &domain.Book{
		ID:         created.ID,
		LocalKey:   domain.NewLocalKey(),
		BookFields: fields,
	}
	if !created.BookFields.IsZero() {
		book.BookFields = created.BookFields
	}

	err = m.libraries.UpdateBooks(lib.Key(), func(books []*domain.Book) []*domain.Book {
		// A reload during the request may already carry the book
		for i, b := range books {
			if b != nil && b.ID == book.ID {
				books[i] = book
				return books
			}
		}
		return append(books, book)
	})
	if err != nil {
		m.logger.Error("library vanished before book was added",
			"error", err, "libID", lib.ID, "bookID", book.ID)
		return nil, err
	}

	m.ResetForm()
	m.logger.Info("added book", "bookID", book.ID, "libID", lib.ID)
	return book, nil
}

// EditBook sends the form as the new values of the book being edited.
// The form and edit mode are cleared only on success.
func (m *Manager) EditBook(ctx context.Context) error {
	m.mu.RLock()
	fields, editing := m.form, m.editing
	m.mu.RUnlock()

	if err := fields.Validate(); err != nil {
		return err
	}
	if editing == nil {
		return fmt.Errorf("no book is being edited: %w", domain.ErrBookNotFound)
	}
	if editing.ID == "" {
		return fmt.Errorf("edit book %q: %w", editing.Title, domain.ErrMissingID)
	}
	lib, ok := m.libraries.Selected()
	if !ok {
		return domain.ErrNoSelection
	}

	if err := m.repo.UpdateBook(ctx, editing.ID, fields); err != nil {
		m.logger.Error("failed to update book", "error", err, "bookID", editing.ID)
		return err
	}

	updated := editing.WithFields(fields)
	found := false
	err := m.libraries.UpdateBooks(lib.Key(), func(books []*domain.Book) []*domain.Book {
		for i, b := range books {
			if b != nil && b.Key() == editing.Key() {
				books[i] = updated
				found = true
				break
			}
		}
		return books
	})
	if err == nil && !found {
		err = domain.ErrBookNotFound
	}
	if err != nil {
		m.logger.Error("edited book is no longer in the selected library",
			"error", err, "bookID", editing.ID, "libID", lib.ID)
		return err
	}

	m.mu.Lock()
	if m.editing == editing {
		m.form = domain.BookFields{}
		m.editing = nil
	}
	m.mu.Unlock()

	m.logger.Info("updated book", "bookID", editing.ID, "libID", lib.ID)
	return nil
}

// DeleteBook deletes the book record and removes it from the selected library.
func (m *Manager) DeleteBook(ctx context.Context, book *domain.Book) error {
	if book == nil {
		return domain.ErrBookNotFound
	}
	if book.ID == "" {
		return fmt.Errorf("delete book %q: %w", book.Title, domain.ErrMissingID)
	}
	lib, ok := m.libraries.Selected()
	if !ok {
		return domain.ErrNoSelection
	}

	if err := m.repo.DeleteBook(ctx, book.ID); err != nil {
		m.logger.Error("failed to delete book", "error", err, "bookID", book.ID)
		return err
	}

	if err := m.removeLocal(lib, book); err != nil {
		return err
	}
	m.logger.Info("deleted book", "bookID", book.ID, "libID", lib.ID)
	return nil
}

// RemoveFromLibrary unlinks book from the selected library, keeping the
// book record on the server.
func (m *Manager) RemoveFromLibrary(ctx context.Context, book *domain.Book) error {
	if book == nil {
		return domain.ErrBookNotFound
	}
	if book.ID == "" {
		return fmt.Errorf("remove book %q: %w", book.Title, domain.ErrMissingID)
	}
	lib, err := m.selectedWithID("remove book")
	if err != nil {
		return err
	}

	if err := m.repo.RemoveBookFromLibrary(ctx, lib.ID, book.ID); err != nil {
		m.logger.Error("failed to remove book from library",
			"error", err, "bookID", book.ID, "libID", lib.ID)
		return err
	}

	if err := m.removeLocal(lib, book); err != nil {
		return err
	}
	m.logger.Info("removed book from library", "bookID", book.ID, "libID", lib.ID)
	return nil
}

// --- Private helpers ---

func (m *Manager) selectedWithID(op string) (domain.Library, error) {
	lib, ok := m.libraries.Selected()
	if !ok {
		return domain.Library{}, domain.ErrNoSelection
	}
	if lib.ID == "" {
		return domain.Library{}, fmt.Errorf("%s: library %q: %w", op, lib.Name, domain.ErrMissingID)
	}
	return lib, nil
}

// removeLocal drops book from lib by key and leaves edit mode if it was being edited
func (m *Manager) removeLocal(lib domain.Library, book *domain.Book) error {
	key := book.Key()
	err := m.libraries.UpdateBooks(lib.Key(), func(books []*domain.Book) []*domain.Book {
		out := books[:0]
		for _, b := range books {
			if b != nil && b.Key() == key {
				continue
			}
			out = append(out, b)
		}
		return out
	})
	if err != nil {
		m.logger.Error("library vanished before book was removed",
			"error", err, "bookID", book.ID, "libID", lib.ID)
		return err
	}

	m.mu.Lock()
	if m.editing != nil && m.editing.Key() == key {
		m.form = domain.BookFields{}
		m.editing = nil
	}
	m.mu.Unlock()
	return nil
}
