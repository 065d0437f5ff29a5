package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/naotama2002/social-login-go/internal/urlutil"
)

// Session holds the per-login state a provider reads and writes: the live
// authorization URL and the cached access token. It is owned by the host and
// passed to every provider operation.
type Session struct {
	ID uuid.UUID

	mu               sync.Mutex
	authorizationURL string
	accessToken      string
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{ID: uuid.New()}
}

// AuthorizationURL returns the authorization URL built by the last Initialize
func (s *Session) AuthorizationURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authorizationURL
}

// SetAuthorizationURL replaces the live authorization URL
func (s *Session) SetAuthorizationURL(authURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorizationURL = authURL
}

// AccessToken returns the cached access token, or "" when none is cached
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// SetAccessToken caches token. An empty token clears the cache.
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}

// ClearAccessToken discards the cached access token
func (s *Session) ClearAccessToken() {
	s.SetAccessToken("")
}

// Scopes is a list of OAuth scopes. As a text value it is comma separated.
type Scopes []string

// ParseScopes splits a comma separated scope string
func ParseScopes(s string) Scopes {
	if s == "" {
		return nil
	}
	return Scopes(strings.Split(s, ","))
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Scopes) UnmarshalText(text []byte) error {
	*s = ParseScopes(string(text))
	return nil
}

// Normalize trims every scope, drops empty ones and removes duplicates while
// keeping the first-seen order.
func (s Scopes) Normalize() []string {
	seen := make(map[string]struct{}, len(s))
	out := make([]string, 0, len(s))
	for _, scope := range s {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		out = append(out, scope)
	}
	return out
}

// Config is the host supplied provider configuration consumed by Initialize
type Config struct {
	AppID       string
	RedirectURI string
	Scopes      Scopes
}

// Page is the URL of the current page load. The zero Page is a fresh load that
// is not an OAuth redirect landing.
type Page struct {
	URL *url.URL
}

// ParsePage parses a landing URL. An empty string yields the zero Page.
func ParsePage(rawURL string) (Page, error) {
	if rawURL == "" {
		return Page{}, nil
	}
	u, err := urlutil.ParseAsURL(rawURL, nil)
	if err != nil {
		return Page{}, fmt.Errorf("invalid landing URL: %w", err)
	}
	return Page{URL: u}, nil
}

// Query returns a query string value of the page URL
func (p Page) Query(key string) string {
	return urlutil.QueryValue(p.URL, key)
}

// Fragment returns a fragment value of the page URL
func (p Page) Fragment(key string) string {
	return urlutil.HashValue(p.URL, key)
}

// ExpiresIn returns the expires_in fragment value, or 0 when absent or malformed
func (p Page) ExpiresIn() int64 {
	n, err := strconv.ParseInt(p.Fragment("expires_in"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Identity is the provider's identity record, kept as decoded
type Identity map[string]any

// String returns the value at key rendered as a string. Numbers are rendered
// without exponent; missing keys yield "".
func (i Identity) String(key string) string {
	v, ok := i[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// SessionResult is returned by a successful CheckSession or Login
type SessionResult struct {
	Identity    Identity `json:"data"`
	AccessToken string   `json:"accessToken"`
}

// RawUser combines the result with a token lifetime for MapUser
func (r *SessionResult) RawUser(expiresIn int64) RawUser {
	return RawUser{Data: r.Identity, AccessToken: r.AccessToken, ExpiresIn: expiresIn}
}

// RawUser mirrors the identity plus token response a provider maps into a User
type RawUser struct {
	Data        Identity `json:"data"`
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
}

// User is the provider neutral user record
type User struct {
	Profile Profile `json:"profile"`
	Token   Token   `json:"token"`
}

// Profile holds the normalized identity fields
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Token holds the normalized token fields. ExpiresAt carries the provider's
// expires_in value as given.
type Token struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
}
