// Package identity supplies the per-request Telegram identity assertion that the
// API client forwards to the backend.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HeaderName carries the JSON-encoded assertion on every API request.
const HeaderName = "X-Telegram-Auth-Data"

type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// Assertion is the host-issued proof of the session. Hash holds the raw,
// signed init data string exactly as the host handed it over.
type Assertion struct {
	User User
	Hash string
}

type headerPayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Hash      string `json:"hash"`
}

// HeaderValue encodes the assertion as {id, first_name, last_name, username, hash}.
func (a Assertion) HeaderValue() (string, error) {
	b, err := json.Marshal(headerPayload{
		ID:        a.User.ID,
		FirstName: a.User.FirstName,
		LastName:  a.User.LastName,
		Username:  a.User.Username,
		Hash:      a.Hash,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode identity header: %w", err)
	}
	return string(b), nil
}

// ParseHeader decodes a header produced by HeaderValue.
func ParseHeader(value string) (Assertion, error) {
	var p headerPayload
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return Assertion{}, fmt.Errorf("invalid identity header: %w", err)
	}
	if p.ID == 0 {
		return Assertion{}, errors.New("invalid identity header: missing user id")
	}
	return Assertion{
		User: User{ID: p.ID, FirstName: p.FirstName, LastName: p.LastName, Username: p.Username},
		Hash: p.Hash,
	}, nil
}

// Source yields the current assertion. It never fails: ok=false means the host
// is absent or has no user, and the caller proceeds anonymously.
type Source interface {
	Assertion(ctx context.Context) (Assertion, bool)
}

// Anonymous is a Source that is always unavailable.
type Anonymous struct{}

func (Anonymous) Assertion(context.Context) (Assertion, bool) { return Assertion{}, false }

// Static always returns the same assertion.
type Static Assertion

func (s Static) Assertion(context.Context) (Assertion, bool) {
	return Assertion(s), s.User.ID != 0
}

// InitDataSource reads raw init data through Get on every call, so a rotated
// value is picked up by the next request.
type InitDataSource struct {
	Get func() string
}

func NewInitDataSource(get func() string) *InitDataSource {
	return &InitDataSource{Get: get}
}

func (s *InitDataSource) Assertion(context.Context) (Assertion, bool) {
	if s == nil || s.Get == nil {
		return Assertion{}, false
	}
	raw := strings.TrimSpace(s.Get())
	if raw == "" {
		return Assertion{}, false
	}
	user, err := ParseInitDataUser(raw)
	if err != nil {
		return Assertion{}, false
	}
	return Assertion{User: user, Hash: raw}, true
}

// ParseInitDataUser extracts the user object from a raw init data query string.
func ParseInitDataUser(raw string) (User, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return User{}, fmt.Errorf("malformed init data: %w", err)
	}
	userJSON := values.Get("user")
	if userJSON == "" {
		return User{}, errors.New("init data has no user")
	}
	var u User
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return User{}, fmt.Errorf("malformed init data user: %w", err)
	}
	if u.ID == 0 {
		return User{}, errors.New("init data user has no id")
	}
	return u, nil
}
