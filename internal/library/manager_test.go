package library

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/librovault/internal/domain"
	"github.com/mmcdole/librovault/internal/log"
	"github.com/mmcdole/librovault/internal/session"
	"github.com/mmcdole/librovault/internal/store"
)

// fakeRepo records calls and answers from canned values
type fakeRepo struct {
	libraries []domain.Library
	getErr    error

	createErr error
	renameErr error
	deleteErr error

	calls   []string
	created []string
}

func (f *fakeRepo) GetLibraries(_ context.Context, userID string) ([]domain.Library, error) {
	f.calls = append(f.calls, "get:"+userID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.libraries, nil
}

func (f *fakeRepo) CreateLibrary(_ context.Context, userID, name string) (*domain.Library, error) {
	f.calls = append(f.calls, "create:"+name)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return &domain.Library{
		ID:          "lib" + string(rune('0'+len(f.created))),
		Name:        name,
		OwnerUserID: userID,
		Books:       []*domain.Book{},
	}, nil
}

func (f *fakeRepo) RenameLibrary(_ context.Context, libraryID, newName string) (*domain.Library, error) {
	f.calls = append(f.calls, "rename:"+libraryID)
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	return &domain.Library{ID: libraryID, Name: newName, Books: []*domain.Book{}}, nil
}

func (f *fakeRepo) DeleteLibrary(_ context.Context, libraryID string) error {
	f.calls = append(f.calls, "delete:"+libraryID)
	return f.deleteErr
}

func (f *fakeRepo) AddBookToLibrary(context.Context, string, string) error      { return nil }
func (f *fakeRepo) RemoveBookFromLibrary(context.Context, string, string) error { return nil }

func newTestManager(t *testing.T, repo *fakeRepo) (*Manager, *session.Session) {
	t.Helper()
	sess := session.New()
	sess.SetUserID("u1")
	return NewManager(repo, nil, sess, log.NullLogger()), sess
}

func TestLoad_ReplacesCollectionAndDropsForeignLibraries(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{
		{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"},
		{ID: "lib2", Name: "Not mine", OwnerUserID: "u2"},
		{ID: "lib3", Name: "Poetry"},
	}}
	m, _ := newTestManager(t, repo)

	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, libs, 2)

	assert.Equal(t, "Fiction", libs[0].Name)
	assert.Equal(t, "Poetry", libs[1].Name)
	assert.Equal(t, "u1", libs[1].OwnerUserID)
	assert.NotEmpty(t, libs[0].LocalKey)
	assert.NotNil(t, libs[0].Books)
	assert.Equal(t, libs, m.Libraries())
}

func TestLoad_NoSession(t *testing.T) {
	repo := &fakeRepo{}
	m := NewManager(repo, nil, session.New(), log.NullLogger())

	_, err := m.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
	assert.Empty(t, repo.calls)
}

func TestLoad_FailureKeepsPreviousCollection(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}}}
	m, _ := newTestManager(t, repo)

	_, err := m.Load(context.Background())
	require.NoError(t, err)

	repo.getErr = domain.ErrServerOffline
	_, err = m.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerOffline)
	assert.Len(t, m.Libraries(), 1)
}

func TestLoad_SelectionSurvivesReloadByID(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{
		{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"},
		{ID: "lib2", Name: "Poetry", OwnerUserID: "u1"},
	}}
	m, _ := newTestManager(t, repo)

	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[1]))

	// Reload with the same library renamed elsewhere
	repo.libraries = []domain.Library{
		{ID: "lib2", Name: "Verse", OwnerUserID: "u1"},
	}
	_, err = m.Load(context.Background())
	require.NoError(t, err)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "Verse", selected.Name)

	// Gone on the next reload: selection clears
	repo.libraries = []domain.Library{}
	_, err = m.Load(context.Background())
	require.NoError(t, err)
	_, ok = m.Selected()
	assert.False(t, ok)
}

func TestAddLibrary(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		signedIn  bool
		createErr error
		wantErr   error
		wantCount int
	}{
		{name: "success", input: "  Fiction ", signedIn: true, wantCount: 1},
		{name: "empty name", input: "   ", signedIn: true, wantErr: domain.ErrValidation},
		{name: "no session", input: "Fiction", wantErr: domain.ErrNoSession},
		{name: "server error", input: "Fiction", signedIn: true, createErr: domain.ErrServerOffline, wantErr: domain.ErrServerOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{createErr: tt.createErr}
			sess := session.New()
			if tt.signedIn {
				sess.SetUserID("u1")
			}
			m := NewManager(repo, nil, sess, log.NullLogger())

			lib, err := m.AddLibrary(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "Fiction", lib.Name)
				assert.Equal(t, "lib1", lib.ID)
			}
			assert.Len(t, m.Libraries(), tt.wantCount)

			if errors.Is(tt.wantErr, domain.ErrValidation) || errors.Is(tt.wantErr, domain.ErrNoSession) {
				assert.Empty(t, repo.calls, "no request for rejected input")
			}
		})
	}
}

func TestAddLibrary_CopyOnWrite(t *testing.T) {
	m, _ := newTestManager(t, &fakeRepo{})

	_, err := m.AddLibrary(context.Background(), "Fiction")
	require.NoError(t, err)
	before := m.Libraries()

	_, err = m.AddLibrary(context.Background(), "Poetry")
	require.NoError(t, err)

	assert.Len(t, before, 1, "earlier snapshot is untouched")
	assert.Len(t, m.Libraries(), 2)
}

func TestRenameLibrary(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{
		{ID: "lib1", Name: "Fiction", OwnerUserID: "u1", Books: []*domain.Book{
			{ID: "b1", BookFields: domain.BookFields{Title: "Dune", Author: "Herbert", Genre: "SciFi"}},
		}},
	}}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)

	_, err = m.RenameLibrary(context.Background(), "Novels")
	assert.ErrorIs(t, err, domain.ErrNoSelection)

	require.NoError(t, m.SelectLibrary(libs[0]))

	_, err = m.RenameLibrary(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	renamed, err := m.RenameLibrary(context.Background(), "Novels")
	require.NoError(t, err)
	assert.Equal(t, "Novels", renamed.Name)
	assert.Equal(t, libs[0].LocalKey, renamed.LocalKey)
	// Server omitted books; local ones are kept
	require.Len(t, renamed.Books, 1)
	assert.Equal(t, "Dune", renamed.Books[0].Title)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "Novels", selected.Name)
	assert.Equal(t, "Fiction", libs[0].Name, "old snapshot is untouched")
}

func TestRenameLibrary_FailureLeavesStaleName(t *testing.T) {
	repo := &fakeRepo{
		libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}},
		renameErr: &domain.StatusError{Method: "PUT", Path: "/api/libraries/update/lib1", StatusCode: 500},
	}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[0]))

	_, err = m.RenameLibrary(context.Background(), "Novels")
	var statusErr *domain.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Fiction", m.Libraries()[0].Name)
}

func TestDeleteLibrary_ClearsSelection(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{
		{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"},
		{ID: "lib2", Name: "Poetry", OwnerUserID: "u1"},
	}}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[0]))

	require.NoError(t, m.DeleteLibrary(context.Background()))

	_, ok := m.Selected()
	assert.False(t, ok)
	require.Len(t, m.Libraries(), 1)
	assert.Equal(t, "lib2", m.Libraries()[0].ID)
	assert.Contains(t, repo.calls, "delete:lib1")
}

func TestDeleteLibrary_FailureKeepsSelection(t *testing.T) {
	repo := &fakeRepo{
		libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}},
		deleteErr: domain.ErrServerOffline,
	}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[0]))

	err = m.DeleteLibrary(context.Background())
	assert.ErrorIs(t, err, domain.ErrServerOffline)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "lib1", selected.ID)
	assert.Len(t, m.Libraries(), 1)
}

func TestDeleteLibrary_NoSelection(t *testing.T) {
	repo := &fakeRepo{}
	m, _ := newTestManager(t, repo)

	assert.ErrorIs(t, m.DeleteLibrary(context.Background()), domain.ErrNoSelection)
	assert.Empty(t, repo.calls)
}

func TestSelectLibrary_RejectsForeignLibrary(t *testing.T) {
	m, _ := newTestManager(t, &fakeRepo{})

	err := m.SelectLibrary(domain.Library{ID: "missing", Name: "Nope"})
	assert.ErrorIs(t, err, domain.ErrLibraryNotFound)
}

func TestUpdateBooks(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}}}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[0]))

	book := &domain.Book{ID: "b1", BookFields: domain.BookFields{Title: "Dune", Author: "Herbert", Genre: "SciFi"}}
	err = m.UpdateBooks("lib1", func(books []*domain.Book) []*domain.Book {
		return append(books, book)
	})
	require.NoError(t, err)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, []*domain.Book{book}, selected.Books)
	assert.Empty(t, libs[0].Books, "old snapshot is untouched")

	err = m.UpdateBooks("nope", func(books []*domain.Book) []*domain.Book { return books })
	assert.ErrorIs(t, err, domain.ErrLibraryNotFound)
}

func TestReset(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}}}
	m, _ := newTestManager(t, repo)
	libs, err := m.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, m.SelectLibrary(libs[0]))

	m.Reset()
	assert.Empty(t, m.Libraries())
	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestFindByName(t *testing.T) {
	repo := &fakeRepo{libraries: []domain.Library{
		{ID: "lib1", Name: "Science Fiction", OwnerUserID: "u1"},
		{ID: "lib2", Name: "Fiction", OwnerUserID: "u1"},
		{ID: "lib3", Name: "Poetry", OwnerUserID: "u1"},
	}}
	m, _ := newTestManager(t, repo)
	_, err := m.Load(context.Background())
	require.NoError(t, err)

	found := m.FindByName("fiction")
	require.Len(t, found, 2)
	assert.Equal(t, "lib2", found[0].ID, "exact match first")
	assert.Equal(t, "lib1", found[1].ID)

	found = m.FindByName("pty")
	require.Len(t, found, 1)
	assert.Equal(t, "lib3", found[0].ID)

	assert.Empty(t, m.FindByName("zzz"))
	assert.Empty(t, m.FindByName(""))
}

func TestCachedLibraries(t *testing.T) {
	cache, err := store.NewLibraryStore("", "")
	require.NoError(t, err)

	sess := session.New()
	sess.SetUserID("u1")
	repo := &fakeRepo{libraries: []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}}}
	m := NewManager(repo, cache, sess, log.NullLogger())

	_, ok := m.CachedLibraries()
	assert.False(t, ok)

	_, err = m.Load(context.Background())
	require.NoError(t, err)

	cached, ok := m.CachedLibraries()
	require.True(t, ok)
	require.Len(t, cached, 1)
	assert.Equal(t, "Fiction", cached[0].Name)

	// A new library lands in the cache too
	_, err = m.AddLibrary(context.Background(), "Poetry")
	require.NoError(t, err)
	cached, _ = m.CachedLibraries()
	assert.Len(t, cached, 2)
}

func TestLoad_NotFoundInvalidatesCache(t *testing.T) {
	cache, err := store.NewLibraryStore("", "")
	require.NoError(t, err)
	require.NoError(t, cache.SaveLibraries("u1", []domain.Library{{ID: "lib1", Name: "Fiction", OwnerUserID: "u1"}}))

	sess := session.New()
	sess.SetUserID("u1")
	repo := &fakeRepo{getErr: &domain.StatusError{Method: "GET", Path: "/api/libraries/user/u1", StatusCode: 404}}
	m := NewManager(repo, cache, sess, log.NullLogger())

	_, err = m.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, ok := m.CachedLibraries()
	assert.False(t, ok)
}
