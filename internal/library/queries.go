package library

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mmcdole/librovault/internal/domain"
)

// Synchronous reads. None of these touch the network.

// Libraries returns the current collection snapshot. It must not be modified.
func (m *Manager) Libraries() []domain.Library {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.libraries
}

// Selected returns the selected library, if any
func (m *Manager) Selected() (domain.Library, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := indexOf(m.libraries, m.selectedKey)
	if i < 0 {
		return domain.Library{}, false
	}
	return m.libraries[i], true
}

// Library returns the library with the given key
func (m *Manager) Library(key string) (domain.Library, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := indexOf(m.libraries, key)
	if i < 0 {
		return domain.Library{}, false
	}
	return m.libraries[i], true
}

// CachedLibraries returns the last confirmed snapshot for the signed-in user
// from the local cache, without touching the live collection.
func (m *Manager) CachedLibraries() ([]domain.Library, bool) {
	if m.store == nil {
		return nil, false
	}
	userID, err := m.currentUser()
	if err != nil {
		return nil, false
	}
	return m.store.GetLibraries(userID)
}

// FindByName ranks the collection against query, best match first.
// Exact and prefix matches outrank fuzzy ones.
func (m *Manager) FindByName(query string) []domain.Library {
	libs := m.Libraries()
	query = strings.TrimSpace(query)
	if query == "" || len(libs) == 0 {
		return nil
	}

	names := make([]string, len(libs))
	for i := range libs {
		names[i] = libs[i].Name
	}

	type ranked struct {
		lib   domain.Library
		score int
	}

	matches := fuzzy.RankFindFold(query, names)
	results := make([]ranked, 0, len(matches))
	for _, match := range matches {
		results = append(results, ranked{
			lib:   libs[match.OriginalIndex],
			score: matchScore(strings.ToLower(match.Target), strings.ToLower(query), match.Distance),
		})
	}

	// Lower is better; ties keep collection order
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score < results[j].score
	})

	out := make([]domain.Library, len(results))
	for i, r := range results {
		out[i] = r.lib
	}
	return out
}

func matchScore(name, query string, distance int) int {
	switch {
	case name == query:
		return 0
	case strings.HasPrefix(name, query):
		return 10
	case strings.Contains(name, query):
		return 50
	default:
		return 100 + distance
	}
}
