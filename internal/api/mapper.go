package api

import "github.com/mmcdole/librovault/internal/domain"

// MapLibraries converts wire libraries to domain libraries
func MapLibraries(dtos []*LibraryDTO) []domain.Library {
	libraries := make([]domain.Library, 0, len(dtos))
	for _, dto := range dtos {
		if dto == nil {
			continue
		}
		libraries = append(libraries, *MapLibrary(dto))
	}
	return libraries
}

// MapLibrary converts a single wire library to a domain library.
// A nil books array maps to an empty slice; nil entries are kept as-is.
func MapLibrary(dto *LibraryDTO) *domain.Library {
	books := make([]*domain.Book, 0, len(dto.Books))
	for _, b := range dto.Books {
		if b == nil {
			books = append(books, nil)
			continue
		}
		books = append(books, MapBook(b))
	}
	return &domain.Library{
		ID:          string(dto.ID),
		Name:        dto.Name,
		OwnerUserID: string(dto.User.ID),
		Books:       books,
	}
}

// MapBook converts a wire book to a domain book
func MapBook(dto *BookDTO) *domain.Book {
	return &domain.Book{
		ID: string(dto.ID),
		BookFields: domain.BookFields{
			Title:           dto.Title,
			Author:          dto.Author,
			Genre:           dto.Genre,
			Translator:      dto.Translator,
			PublicationDate: string(dto.PublicationDate),
			Edition:         string(dto.Edition),
			VolumeNumber:    string(dto.VolumeNumber),
			Subgenre:        dto.Subgenre,
			ISBN:            string(dto.ISBN),
		},
	}
}

// bookRequest builds the create/update body from domain fields
func bookRequest(f domain.BookFields) *BookDTO {
	return &BookDTO{
		Title:           f.Title,
		Author:          f.Author,
		Translator:      f.Translator,
		PublicationDate: flexString(f.PublicationDate),
		Edition:         flexString(f.Edition),
		VolumeNumber:    flexString(f.VolumeNumber),
		Genre:           f.Genre,
		Subgenre:        f.Subgenre,
		ISBN:            flexString(f.ISBN),
	}
}
