package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/librovault/internal/domain"
)

const (
	defaultTimeout     = 30 * time.Second
	userAgent          = "LibroVault/1.0"
	defaultLoginPath   = "/api/users/login"
	defaultAccountPath = "/api/users"
)

// Client implements domain.LibraryStoreAPI over the library store's REST interface
type Client struct {
	baseURL     string
	loginPath   string
	accountPath string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAuthPaths overrides the login and account creation endpoints
func WithAuthPaths(loginPath, accountPath string) Option {
	return func(c *Client) {
		if loginPath != "" {
			c.loginPath = loginPath
		}
		if accountPath != "" {
			c.accountPath = accountPath
		}
	}
}

// NewClient creates a new library store API client
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		loginPath:   defaultLoginPath,
		accountPath: defaultAccountPath,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request and returns the body of a 2xx response.
// There is no retry: every retry is user-initiated.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("library store request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("library store request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("library store request error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return nil, &domain.StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	return respBody, nil
}

// decode unmarshals a response body, rejecting an empty one
func decode(body []byte, dest any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// === Libraries ===

// GetLibraries returns all libraries owned by userID
func (c *Client) GetLibraries(ctx context.Context, userID string) ([]domain.Library, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/libraries/user/"+escape(userID), nil, nil)
	if err != nil {
		return nil, err
	}

	var dtos []*LibraryDTO
	if err := decode(body, &dtos); err != nil {
		return nil, err
	}
	return MapLibraries(dtos), nil
}

// CreateLibrary creates a library owned by userID
func (c *Client) CreateLibrary(ctx context.Context, userID, name string) (*domain.Library, error) {
	reqBody := createLibraryRequest{Name: name, User: userID}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/libraries", nil, reqBody)
	if err != nil {
		return nil, err
	}

	var dto LibraryDTO
	if err := decode(body, &dto); err != nil {
		return nil, err
	}
	return MapLibrary(&dto), nil
}

// RenameLibrary renames a library; the new name travels as a query parameter
func (c *Client) RenameLibrary(ctx context.Context, libraryID, newName string) (*domain.Library, error) {
	query := url.Values{}
	query.Set("newName", newName)

	body, err := c.doRequest(ctx, http.MethodPut, "/api/libraries/update/"+escape(libraryID), query, nil)
	if err != nil {
		return nil, err
	}

	var dto LibraryDTO
	if err := decode(body, &dto); err != nil {
		return nil, err
	}
	return MapLibrary(&dto), nil
}

// DeleteLibrary deletes a library
func (c *Client) DeleteLibrary(ctx context.Context, libraryID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/libraries/"+escape(libraryID), nil, nil)
	return err
}

// AddBookToLibrary links a book to a library
func (c *Client) AddBookToLibrary(ctx context.Context, libraryID, bookID string) error {
	path := fmt.Sprintf("/api/libraries/%s/addBook/%s", escape(libraryID), escape(bookID))
	_, err := c.doRequest(ctx, http.MethodPost, path, nil, nil)
	return err
}

// RemoveBookFromLibrary unlinks a book from a library
func (c *Client) RemoveBookFromLibrary(ctx context.Context, libraryID, bookID string) error {
	path := fmt.Sprintf("/api/libraries/%s/books/%s", escape(libraryID), escape(bookID))
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// === Books ===

// CreateBook creates a book record
func (c *Client) CreateBook(ctx context.Context, fields domain.BookFields) (*domain.Book, error) {
	body, err := c.doRequest(ctx, http.MethodPost, "/api/books", nil, bookRequest(fields))
	if err != nil {
		return nil, err
	}

	var dto BookDTO
	if err := decode(body, &dto); err != nil {
		return nil, err
	}
	return MapBook(&dto), nil
}

// UpdateBook replaces the fields of a book
func (c *Client) UpdateBook(ctx context.Context, bookID string, fields domain.BookFields) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/api/books/"+escape(bookID), nil, bookRequest(fields))
	return err
}

// DeleteBook deletes a book record
func (c *Client) DeleteBook(ctx context.Context, bookID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/books/remove/"+escape(bookID), nil, nil)
	return err
}

// === Users ===

// Authenticate exchanges credentials for a user identity
func (c *Client) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	body, err := c.doRequest(ctx, http.MethodPost, c.loginPath, nil, credentialsRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		var statusErr *domain.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized ||
			statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusForbidden) {
			return nil, domain.ErrAuthFailed
		}
		return nil, err
	}
	return c.decodeUser(body, username)
}

// CreateAccount registers a new user
func (c *Client) CreateAccount(ctx context.Context, username, password string) (*domain.User, error) {
	body, err := c.doRequest(ctx, http.MethodPost, c.accountPath, nil, credentialsRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}
	return c.decodeUser(body, username)
}

func (c *Client) decodeUser(body []byte, username string) (*domain.User, error) {
	var dto UserDTO
	if err := decode(body, &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, fmt.Errorf("user response carries no id")
	}
	if dto.Username == "" {
		dto.Username = username
	}
	return &domain.User{ID: string(dto.ID), Username: dto.Username}, nil
}
