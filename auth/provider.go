package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provider is the uniform interface every login provider implements
type Provider interface {
	// Name returns the provider name, which is also the callback marker value
	Name() string

	// Initialize builds the authorization URL and, when page is a redirect
	// landing for this provider, stores the returned token or reports the
	// provider's error. It returns the cached token, which may be empty.
	Initialize(ctx context.Context, s *Session, cfg Config, page Page) (string, error)

	// Login returns the current session when the cached token is valid, and
	// otherwise sends the user agent to the authorization endpoint and returns
	// ErrRedirected.
	Login(ctx context.Context, s *Session) (*SessionResult, error)

	// CheckSession validates the cached token against the provider
	CheckSession(ctx context.Context, s *Session, autoLogin bool) (*SessionResult, error)

	// Logout discards the cached token
	Logout(ctx context.Context, s *Session) error

	// MapUser normalizes a raw identity and token record
	MapUser(raw RawUser) User
}

// Registry holds providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a provider under its name
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	r.providers[name] = p
	return nil
}

// Get returns the provider registered under name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
