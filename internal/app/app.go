// Package app is the composition root: it builds the session, managers
// and dispatcher from config and wires sign-in/sign-out to library loading.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/mmcdole/librovault/internal/api"
	"github.com/mmcdole/librovault/internal/auth"
	"github.com/mmcdole/librovault/internal/books"
	"github.com/mmcdole/librovault/internal/config"
	"github.com/mmcdole/librovault/internal/dispatch"
	"github.com/mmcdole/librovault/internal/domain"
	"github.com/mmcdole/librovault/internal/library"
	"github.com/mmcdole/librovault/internal/session"
	"github.com/mmcdole/librovault/internal/store"
)

// Operation names carried by dispatch.Result.Name
const (
	OpSignIn            = "sign-in"
	OpCreateAccount     = "create-account"
	OpLoadLibraries     = "load-libraries"
	OpAddLibrary        = "add-library"
	OpRenameLibrary     = "rename-library"
	OpDeleteLibrary     = "delete-library"
	OpAddBook           = "add-book"
	OpEditBook          = "edit-book"
	OpDeleteBook        = "delete-book"
	OpRemoveFromLibrary = "remove-from-library"
)

// App owns every long-lived component of a running client
type App struct {
	Session   *session.Session
	Auth      *auth.Service
	Libraries *library.Manager
	Books     *books.Manager

	dispatcher *dispatch.Dispatcher
	store      domain.Store
	logger     *slog.Logger
}

// Open builds an App against the library store configured in cfg
func Open(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := api.NewClient(cfg.API.BaseURL, logger,
		api.WithTimeout(cfg.API.Timeout),
		api.WithAuthPaths(cfg.Auth.LoginPath, cfg.Auth.AccountPath),
	)

	cache, err := store.NewLibraryStore(cfg.CacheDir(), cfg.API.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	return New(cfg, client, cache, logger), nil
}

// New wires an App from its collaborators. cache may be nil.
func New(cfg *config.Config, client domain.LibraryStoreAPI, cache domain.Store, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}

	locale, err := language.Parse(cfg.UI.Locale)
	if err != nil {
		logger.Warn("invalid locale, using root collation", "locale", cfg.UI.Locale, "error", err)
		locale = language.Und
	}
	sortMethod, err := books.ParseSortMethod(cfg.UI.DefaultSort)
	if err != nil {
		logger.Warn("invalid default sort", "sort", cfg.UI.DefaultSort, "error", err)
	}

	sess := session.New()
	libs := library.NewManager(client, cache, sess, logger)

	a := &App{
		Session:   sess,
		Auth:      auth.NewService(client, sess, logger),
		Libraries: libs,
		Books: books.NewManager(client, libs, logger,
			books.WithLocale(locale),
			books.WithSortMethod(sortMethod),
		),
		dispatcher: dispatch.New(cfg.API.Timeout, logger),
		store:      cache,
		logger:     logger,
	}
	sess.Watch(a.onSessionChange)
	return a
}

// Results delivers completions of every dispatched operation
func (a *App) Results() <-chan dispatch.Result {
	return a.dispatcher.Results()
}

// Close drops outstanding operations and closes the cache
func (a *App) Close() error {
	a.dispatcher.Close()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// ClearCache drops every cached library snapshot
func (a *App) ClearCache() {
	if a.store != nil {
		a.store.InvalidateAll()
		a.logger.Info("invalidated all cache")
	}
}

// onSessionChange loads libraries when a user signs in and clears all
// per-user state when they sign out or switch.
func (a *App) onSessionChange(prev, next string) {
	if prev != "" {
		a.Libraries.Reset()
		a.Books.ResetForm()
		a.Books.Search("")
	}
	if next == "" {
		return
	}
	a.logger.Debug("session started, loading libraries", "userID", next)
	a.LoadLibraries()
}

// === Asynchronous operations ===
// Each returns immediately; the outcome arrives on Results.

// SignIn authenticates; libraries load once the session is set.
func (a *App) SignIn(username, password string) {
	a.dispatcher.Go(OpSignIn, func(ctx context.Context) (any, error) {
		return a.Auth.SignIn(ctx, username, password)
	})
}

// CreateAccount registers and signs in a new user
func (a *App) CreateAccount(username, password, confirm string) {
	a.dispatcher.Go(OpCreateAccount, func(ctx context.Context) (any, error) {
		return a.Auth.CreateAccount(ctx, username, password, confirm)
	})
}

// SignOut clears the session synchronously
func (a *App) SignOut() {
	a.Auth.SignOut()
}

// LoadLibraries refreshes the collection from the library store
func (a *App) LoadLibraries() {
	a.dispatcher.Go(OpLoadLibraries, func(ctx context.Context) (any, error) {
		return a.Libraries.Load(ctx)
	})
}

// AddLibrary creates a library
func (a *App) AddLibrary(name string) {
	a.dispatcher.Go(OpAddLibrary, func(ctx context.Context) (any, error) {
		return a.Libraries.AddLibrary(ctx, name)
	})
}

// RenameLibrary renames the selected library
func (a *App) RenameLibrary(newName string) {
	a.dispatcher.Go(OpRenameLibrary, func(ctx context.Context) (any, error) {
		return a.Libraries.RenameLibrary(ctx, newName)
	})
}

// DeleteLibrary deletes the selected library
func (a *App) DeleteLibrary() {
	a.dispatcher.Go(OpDeleteLibrary, func(ctx context.Context) (any, error) {
		return nil, a.Libraries.DeleteLibrary(ctx)
	})
}

// AddBook creates a book from the editor form in the selected library
func (a *App) AddBook() {
	a.dispatcher.Go(OpAddBook, func(ctx context.Context) (any, error) {
		return a.Books.AddBook(ctx)
	})
}

// EditBook saves the editor form over the book being edited
func (a *App) EditBook() {
	a.dispatcher.Go(OpEditBook, func(ctx context.Context) (any, error) {
		return nil, a.Books.EditBook(ctx)
	})
}

// DeleteBook deletes a book of the selected library
func (a *App) DeleteBook(book *domain.Book) {
	a.dispatcher.Go(OpDeleteBook, func(ctx context.Context) (any, error) {
		return book, a.Books.DeleteBook(ctx, book)
	})
}

// RemoveFromLibrary unlinks a book from the selected library
func (a *App) RemoveFromLibrary(book *domain.Book) {
	a.dispatcher.Go(OpRemoveFromLibrary, func(ctx context.Context) (any, error) {
		return book, a.Books.RemoveFromLibrary(ctx, book)
	})
}

// === Synchronous operations ===

// SelectLibrary selects lib. Switching to a different library leaves
// edit mode so the form never targets a book outside the selection.
func (a *App) SelectLibrary(lib domain.Library) error {
	prev, hadPrev := a.Libraries.Selected()
	if err := a.Libraries.SelectLibrary(lib); err != nil {
		return err
	}
	if !hadPrev || prev.Key() != lib.Key() {
		a.Books.ResetForm()
	}
	return nil
}
