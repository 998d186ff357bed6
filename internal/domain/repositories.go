package domain

import (
	"context"
)

// LibraryRepository provides access to the user's libraries on the library store
type LibraryRepository interface {
	// GetLibraries returns all libraries owned by userID
	GetLibraries(ctx context.Context, userID string) ([]Library, error)

	// CreateLibrary creates a library and returns it with its assigned ID
	CreateLibrary(ctx context.Context, userID, name string) (*Library, error)

	// RenameLibrary renames a library and returns the server representation
	RenameLibrary(ctx context.Context, libraryID, newName string) (*Library, error)

	// DeleteLibrary deletes a library
	DeleteLibrary(ctx context.Context, libraryID string) error

	// AddBookToLibrary links an existing book to a library
	AddBookToLibrary(ctx context.Context, libraryID, bookID string) error

	// RemoveBookFromLibrary unlinks a book from a library without deleting it
	RemoveBookFromLibrary(ctx context.Context, libraryID, bookID string) error
}

// BookRepository provides access to book records on the library store
type BookRepository interface {
	// CreateBook creates a book and returns it with its assigned ID
	CreateBook(ctx context.Context, fields BookFields) (*Book, error)

	// UpdateBook replaces the fields of an existing book
	UpdateBook(ctx context.Context, bookID string, fields BookFields) error

	// DeleteBook deletes a book record
	DeleteBook(ctx context.Context, bookID string) error
}

// AuthRepository talks to the external auth and account services
type AuthRepository interface {
	// Authenticate exchanges credentials for a user identity.
	// Returns ErrAuthFailed when the credentials are rejected.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// CreateAccount registers a new user and returns its identity
	CreateAccount(ctx context.Context, username, password string) (*User, error)
}

// LibraryStoreAPI is everything the REST client implements.
type LibraryStoreAPI interface {
	LibraryRepository
	BookRepository
	AuthRepository
}
