package api

import (
	"bytes"
	"encoding/json"
)

// flexString decodes a JSON string or number into a string.
// The library store is free to use numeric ids; the client treats them as opaque.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// userRef decodes either a bare user id or an embedded user object.
type userRef struct {
	ID flexString
}

func (u *userRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID flexString `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		u.ID = obj.ID
		return nil
	}
	return u.ID.UnmarshalJSON(data)
}

func (u userRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(u.ID))
}

// LibraryDTO is the wire shape of a library
type LibraryDTO struct {
	ID    flexString `json:"id,omitempty"`
	Name  string     `json:"name"`
	User  userRef    `json:"user"`
	Books []*BookDTO `json:"books"`
}

// createLibraryRequest is the body of POST /api/libraries
type createLibraryRequest struct {
	Name string `json:"name"`
	User string `json:"user"`
}

// BookDTO is the wire shape of a book, used for both requests and responses
type BookDTO struct {
	ID              flexString `json:"id,omitempty"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	Translator      string     `json:"translator"`
	PublicationDate flexString `json:"publicationDate"`
	Edition         flexString `json:"edition"`
	VolumeNumber    flexString `json:"volumeNumber"`
	Genre           string     `json:"genre"`
	Subgenre        string     `json:"subgenre"`
	ISBN            flexString `json:"isbn"`
}

// credentialsRequest is the body of the login and account endpoints
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserDTO is the wire shape of a user returned by the auth services
type UserDTO struct {
	ID       flexString `json:"id"`
	Username string     `json:"username"`
}
