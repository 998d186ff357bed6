package books

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mmcdole/librovault/internal/domain"
)

// SortMethod selects how the derived book view is ordered
type SortMethod string

const (
	SortDefault      SortMethod = "default" // Insertion order
	SortAlphabetical SortMethod = "alphabetical"
	SortByAuthor     SortMethod = "byAuthor"
	SortByGenre      SortMethod = "byGenre"
)

// SortMethods lists every method in display order
var SortMethods = []SortMethod{SortDefault, SortAlphabetical, SortByAuthor, SortByGenre}

// ParseSortMethod accepts a sort method name, ignoring case.
// An empty string is the default method.
func ParseSortMethod(s string) (SortMethod, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortDefault, nil
	}
	for _, m := range SortMethods {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return SortDefault, fmt.Errorf("unknown sort method %q", s)
}

// Derive returns the books whose title contains term (case-insensitive),
// ordered by method. Nil entries are skipped. books is never modified;
// the result is always a fresh slice.
func Derive(books []*domain.Book, term string, method SortMethod, locale language.Tag) []*domain.Book {
	term = strings.ToLower(term)

	out := make([]*domain.Book, 0, len(books))
	for _, b := range books {
		if b == nil {
			continue
		}
		if term == "" || strings.Contains(strings.ToLower(b.Title), term) {
			out = append(out, b)
		}
	}

	var key func(b *domain.Book) string
	switch method {
	case SortAlphabetical:
		key = func(b *domain.Book) string { return b.Title }
	case SortByAuthor:
		key = func(b *domain.Book) string { return b.Author }
	case SortByGenre:
		key = func(b *domain.Book) string { return b.Genre }
	default:
		return out
	}

	// Collators keep scratch buffers, so each derivation gets its own
	col := collate.New(locale)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(key(out[i]), key(out[j])) < 0
	})
	return out
}
