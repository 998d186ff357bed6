package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/librovault/internal/api"
	"github.com/mmcdole/librovault/internal/config"
	"github.com/mmcdole/librovault/internal/dispatch"
	"github.com/mmcdole/librovault/internal/domain"
	"github.com/mmcdole/librovault/internal/log"
)

// backend is a minimal in-memory library store
type backend struct {
	mu        sync.Mutex
	libraries []map[string]any
	links     []string
	requests  []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "carl" || creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]any{"id": "u1", "username": "carl"})
	})
	mux.HandleFunc("GET /api/libraries/user/{userId}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		writeJSON(w, b.libraries)
	})
	mux.HandleFunc("POST /api/libraries", func(w http.ResponseWriter, r *http.Request) {
		var req struct{ Name, User string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		lib := map[string]any{"id": "lib1", "name": req.Name, "user": req.User, "books": []any{}}
		b.mu.Lock()
		b.libraries = append(b.libraries, lib)
		b.mu.Unlock()
		writeJSON(w, lib)
	})
	mux.HandleFunc("POST /api/books", func(w http.ResponseWriter, r *http.Request) {
		var book map[string]any
		_ = json.NewDecoder(r.Body).Decode(&book)
		book["id"] = "b1"
		writeJSON(w, book)
	})
	mux.HandleFunc("POST /api/libraries/{libraryId}/addBook/{bookId}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.links = append(b.links, r.PathValue("libraryId")+"/"+r.PathValue("bookId"))
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestApp(t *testing.T) (*App, *backend) {
	t.Helper()
	be := &backend{}
	server := httptest.NewServer(be.handler())
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Timeout = 2 * time.Second

	client := api.NewClient(server.URL, log.NullLogger(), api.WithHTTPClient(server.Client()))
	a := New(cfg, client, nil, log.NullLogger())
	t.Cleanup(func() { _ = a.Close() })
	return a, be
}

// await collects results until every named operation has completed once
func await(t *testing.T, a *App, names ...string) map[string]dispatch.Result {
	t.Helper()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	got := make(map[string]dispatch.Result)
	timeout := time.After(3 * time.Second)
	for len(want) > 0 {
		select {
		case res := <-a.Results():
			got[res.Name] = res
			delete(want, res.Name)
		case <-timeout:
			t.Fatalf("timed out waiting for %v", want)
		}
	}
	return got
}

func TestApp_EndToEnd(t *testing.T) {
	a, be := newTestApp(t)

	a.SignIn("carl", "secret")
	res := await(t, a, OpSignIn, OpLoadLibraries)
	require.NoError(t, res[OpSignIn].Err)
	require.NoError(t, res[OpLoadLibraries].Err)
	assert.Empty(t, a.Libraries.Libraries())

	a.AddLibrary("Fiction")
	res = await(t, a, OpAddLibrary)
	require.NoError(t, res[OpAddLibrary].Err)

	libs := a.Libraries.Libraries()
	require.Len(t, libs, 1)
	assert.Equal(t, "lib1", libs[0].ID)
	assert.Equal(t, "Fiction", libs[0].Name)
	assert.Empty(t, libs[0].Books)

	require.NoError(t, a.SelectLibrary(libs[0]))
	a.Books.SetForm(domain.BookFields{Title: "Dune", Author: "Herbert", Genre: "SciFi"})

	a.AddBook()
	res = await(t, a, OpAddBook)
	require.NoError(t, res[OpAddBook].Err)

	selected, ok := a.Libraries.Selected()
	require.True(t, ok)
	require.Len(t, selected.Books, 1)
	assert.Equal(t, "b1", selected.Books[0].ID)
	assert.Equal(t, domain.BookFields{Title: "Dune", Author: "Herbert", Genre: "SciFi"}, selected.Books[0].BookFields)

	be.mu.Lock()
	assert.Equal(t, []string{"lib1/b1"}, be.links)
	be.mu.Unlock()
	assert.Equal(t, []*domain.Book{selected.Books[0]}, a.Books.Books())
}

func TestApp_SignInFailure(t *testing.T) {
	a, be := newTestApp(t)

	a.SignIn("carl", "wrong")
	res := await(t, a, OpSignIn)
	assert.ErrorIs(t, res[OpSignIn].Err, domain.ErrAuthFailed)
	assert.False(t, a.Session.SignedIn())

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Equal(t, []string{"POST /api/users/login"}, be.requests)
}

func TestApp_ValidationSendsNothing(t *testing.T) {
	a, be := newTestApp(t)

	a.SignIn("carl", "secret")
	await(t, a, OpSignIn, OpLoadLibraries)
	be.mu.Lock()
	before := len(be.requests)
	be.mu.Unlock()

	a.AddLibrary("   ")
	res := await(t, a, OpAddLibrary)
	assert.ErrorIs(t, res[OpAddLibrary].Err, domain.ErrValidation)

	a.AddBook()
	res = await(t, a, OpAddBook)
	assert.ErrorIs(t, res[OpAddBook].Err, domain.ErrValidation)

	be.mu.Lock()
	defer be.mu.Unlock()
	assert.Len(t, be.requests, before)
}

func TestApp_SignOutResetsState(t *testing.T) {
	a, _ := newTestApp(t)

	a.SignIn("carl", "secret")
	await(t, a, OpSignIn, OpLoadLibraries)
	a.AddLibrary("Fiction")
	await(t, a, OpAddLibrary)
	require.NoError(t, a.SelectLibrary(a.Libraries.Libraries()[0]))
	a.Books.SetForm(domain.BookFields{Title: "Half typed"})
	a.Books.Search("dune")

	a.SignOut()

	assert.False(t, a.Session.SignedIn())
	assert.Empty(t, a.Libraries.Libraries())
	_, ok := a.Libraries.Selected()
	assert.False(t, ok)
	assert.True(t, a.Books.Form().IsZero())
	assert.Empty(t, a.Books.SearchTerm())

	// Without a session nothing can be created
	a.AddLibrary("Poetry")
	res := await(t, a, OpAddLibrary)
	assert.ErrorIs(t, res[OpAddLibrary].Err, domain.ErrNoSession)
}

func TestApp_SelectLibraryResetsEditorOnChange(t *testing.T) {
	a, be := newTestApp(t)
	be.libraries = []map[string]any{
		{"id": "lib1", "name": "Fiction", "user": "u1", "books": []any{
			map[string]any{"id": "b1", "title": "Dune", "author": "Herbert", "genre": "SciFi"},
		}},
		{"id": "lib2", "name": "Poetry", "user": "u1", "books": []any{}},
	}

	a.SignIn("carl", "secret")
	await(t, a, OpSignIn, OpLoadLibraries)
	libs := a.Libraries.Libraries()
	require.Len(t, libs, 2)

	require.NoError(t, a.SelectLibrary(libs[0]))
	a.Books.EditButton(libs[0].Books[0])

	// Reselecting the same library keeps edit mode
	require.NoError(t, a.SelectLibrary(libs[0]))
	_, editing := a.Books.Editing()
	assert.True(t, editing)

	require.NoError(t, a.SelectLibrary(libs[1]))
	_, editing = a.Books.Editing()
	assert.False(t, editing)
	assert.True(t, a.Books.Form().IsZero())
}

func TestApp_CloseDropsLateResults(t *testing.T) {
	a, _ := newTestApp(t)
	require.NoError(t, a.Close())

	a.AddLibrary("Fiction")
	_, open := <-a.Results()
	assert.False(t, open)
}
