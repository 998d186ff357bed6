package domain

// Store handles the local library cache (BoltDB + memory).
// It only holds the last confirmed server snapshot; it is never the source of truth.
type Store interface {
	GetLibraries(userID string) ([]Library, bool)
	SaveLibraries(userID string, libs []Library) error

	InvalidateUser(userID string)
	InvalidateAll()

	Close() error
}
