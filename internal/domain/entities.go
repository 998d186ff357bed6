package domain

import (
	"strings"

	"github.com/google/uuid"
)

// NewLocalKey returns a client-side identity for an entity entering a collection.
func NewLocalKey() string {
	return uuid.NewString()
}

// BookFields holds the editable bibliographic fields of a book.
// Title, Author and Genre are required; everything else is free-form.
type BookFields struct {
	Title  string // Required
	Author string // Required
	Genre  string // Required

	Translator      string
	PublicationDate string
	Edition         string
	VolumeNumber    string
	Subgenre        string
	ISBN            string
}

// Validate reports the required fields that are empty after trimming.
func (f BookFields) Validate() error {
	var missing []string
	if strings.TrimSpace(f.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(f.Author) == "" {
		missing = append(missing, "author")
	}
	if strings.TrimSpace(f.Genre) == "" {
		missing = append(missing, "genre")
	}
	if len(missing) > 0 {
		return &ValidationError{
			Fields:  missing,
			Message: "please complete the Title, Author, and Genre fields",
		}
	}
	return nil
}

// IsZero returns true if every field is empty
func (f BookFields) IsZero() bool {
	return f == BookFields{}
}

// Book is a catalog record contained in exactly one library.
type Book struct {
	ID       string // Server-assigned identifier, empty until the create round-trips
	LocalKey string // Client-side identity, stable across collection copies

	BookFields
}

// Key returns the identity used to match this book inside a collection.
func (b *Book) Key() string {
	if b.ID != "" {
		return b.ID
	}
	return b.LocalKey
}

// WithFields returns a copy of the book carrying new field values.
// ID and LocalKey are preserved.
func (b *Book) WithFields(f BookFields) *Book {
	return &Book{ID: b.ID, LocalKey: b.LocalKey, BookFields: f}
}

// Library is a named, user-owned container of books.
type Library struct {
	ID          string  // Server-assigned identifier
	LocalKey    string  // Client-side identity, stable across collection copies
	Name        string  // Display name, never empty
	OwnerUserID string  // Session user that owns the library
	Books       []*Book // Insertion order is the canonical order
}

// Key returns the identity used to match this library inside a collection.
func (l *Library) Key() string {
	if l.ID != "" {
		return l.ID
	}
	return l.LocalKey
}

// Clone returns a copy with its own book slice. Book values are shared;
// they are never mutated once placed in a collection.
func (l Library) Clone() Library {
	if l.Books != nil {
		books := make([]*Book, len(l.Books))
		copy(books, l.Books)
		l.Books = books
	}
	return l
}

// BookCount returns the number of non-nil books
func (l *Library) BookCount() int {
	n := 0
	for _, b := range l.Books {
		if b != nil {
			n++
		}
	}
	return n
}

// FindBook returns the book with the given key.
func (l *Library) FindBook(key string) (*Book, bool) {
	for _, b := range l.Books {
		if b != nil && b.Key() == key {
			return b, true
		}
	}
	return nil, false
}

// User is the identity returned by the auth and account services.
type User struct {
	ID       string
	Username string
}
