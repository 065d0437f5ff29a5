// Package battlenet implements the Battle.net login provider: an OAuth2
// implicit grant performed by the user agent, with the access token returned
// in the fragment of the redirect landing URL.
package battlenet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/internal/httpclient"
	"github.com/naotama2002/social-login-go/internal/logger"
	"github.com/naotama2002/social-login-go/internal/urlutil"
)

const (
	// Name is the provider name and the value of the callback marker
	Name = "battlenet"

	// CallbackParam is the query parameter marking a redirect landing
	CallbackParam = auth.LandingMarkerParam

	// DefaultRegion is used when Options.Region is empty
	DefaultRegion = "us"

	displayNameField = "battletag"
)

var regionBaseURLs = map[string]string{
	"us": "https://us.battle.net",
	"eu": "https://eu.battle.net",
	"kr": "https://kr.battle.net",
	"tw": "https://tw.battle.net",
	"cn": "https://www.battlenet.com.cn",
}

// RegionBaseURL returns the OAuth base URL of a Battle.net region
func RegionBaseURL(region string) (string, error) {
	if region == "" {
		region = DefaultRegion
	}
	base, ok := regionBaseURLs[strings.ToLower(region)]
	if !ok {
		return "", fmt.Errorf("unknown battlenet region %q", region)
	}
	return base, nil
}

// Transport fetches a JSON (or JSONP) document
type Transport interface {
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Options configures a Provider
type Options struct {
	// Region selects the Battle.net region, us by default
	Region string

	// BaseURL overrides the region's authorization base URL
	BaseURL string

	// APIBaseURL overrides the base URL of the identity endpoint, which
	// defaults to the authorization base URL
	APIBaseURL string

	Transport Transport
	Navigator auth.Navigator
	Logger    *zap.Logger
}

// Provider is the Battle.net implementation of auth.Provider
type Provider struct {
	endpoint   oauth2.Endpoint
	apiBaseURL string
	transport  Transport
	navigator  auth.Navigator
	logger     *zap.Logger
}

var _ auth.Provider = (*Provider)(nil)

// New creates a Battle.net provider
func New(opts Options) (*Provider, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		var err error
		baseURL, err = RegionBaseURL(opts.Region)
		if err != nil {
			return nil, err
		}
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	apiBaseURL := strings.TrimSuffix(opts.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = baseURL
	}

	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l = l.With(logger.Provider(Name))

	transport := opts.Transport
	if transport == nil {
		transport = httpclient.New(nil)
	}

	navigator := opts.Navigator
	if navigator == nil {
		navigator = auth.NewBrowserNavigator(l, true)
	}

	return &Provider{
		endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + "/oauth/authorize",
			TokenURL: baseURL + "/oauth/token",
		},
		apiBaseURL: apiBaseURL,
		transport:  transport,
		navigator:  navigator,
		logger:     l,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return Name
}

// Initialize builds the authorization URL for cfg and, when page is a Battle.net
// redirect landing, stores the access token from its fragment or fails with
// the error the provider reported in its query.
func (p *Provider) Initialize(ctx context.Context, s *auth.Session, cfg auth.Config, page auth.Page) (string, error) {
	redirect, err := urlutil.ParseAsURL(cfg.RedirectURI, page.URL)
	if err != nil {
		return "", fmt.Errorf("battlenet: invalid redirect URI: %w", err)
	}
	redirect = urlutil.AppendQuery(redirect, CallbackParam+"="+Name)

	oauthConfig := oauth2.Config{
		ClientID:    cfg.AppID,
		RedirectURL: redirect.String(),
		Scopes:      cfg.Scopes.Normalize(),
		Endpoint:    p.endpoint,
	}
	s.SetAuthorizationURL(oauthConfig.AuthCodeURL(""))

	log := p.logger.With(logger.SessionID(s.ID))
	log.Debug("Authorization URL built", zap.Strings("scopes", oauthConfig.Scopes))

	if page.Query(CallbackParam) == Name {
		if code := page.Query("error"); code != "" {
			log.Warn("Authorization rejected by provider", zap.String("error", code))
			return "", auth.NewError(Name, auth.ErrorTypeAuth, "Authentication failed", &auth.CallbackError{
				Code:        code,
				Reason:      page.Query("error_reason"),
				Description: page.Query("error_description"),
			})
		}

		s.SetAccessToken(page.Fragment("access_token"))
		log.Info("Redirect landing processed", zap.Bool("token_received", s.AccessToken() != ""))
	}

	return s.AccessToken(), nil
}

// Meta is the status block of an identity endpoint response
type Meta struct {
	Code         int    `json:"code"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Error implements the error interface
func (m *Meta) Error() string {
	if m.ErrorMessage != "" {
		return fmt.Sprintf("status %d: %s", m.Code, m.ErrorMessage)
	}
	return fmt.Sprintf("status %d", m.Code)
}

type userInfoResponse struct {
	Meta *Meta         `json:"meta"`
	Data auth.Identity `json:"data"`
}

// CheckSession validates the cached token by calling the identity endpoint.
// With autoLogin it behaves like Login.
func (p *Provider) CheckSession(ctx context.Context, s *auth.Session, autoLogin bool) (*auth.SessionResult, error) {
	if autoLogin {
		return p.Login(ctx, s)
	}

	token := s.AccessToken()
	if token == "" {
		return nil, auth.NewError(Name, auth.ErrorTypeAccessToken, "No access token available", nil)
	}

	var resp userInfoResponse
	if err := p.transport.GetJSON(ctx, p.userInfoURL(token), &resp); err != nil {
		return nil, fetchError(err)
	}
	if resp.Meta == nil {
		return nil, fetchError(errors.New("identity response has no meta block"))
	}
	if resp.Meta.Code != http.StatusOK {
		p.logger.Debug("Identity check rejected", logger.SessionID(s.ID), zap.Int("code", resp.Meta.Code))
		return nil, auth.NewError(Name, auth.ErrorTypeCheckLogin, "Failed to fetch user data", resp.Meta)
	}

	return &auth.SessionResult{Identity: resp.Data, AccessToken: token}, nil
}

func fetchError(err error) error {
	return &auth.TransportError{
		Inner: auth.NewError(Name, auth.ErrorTypeCheckLogin, "Failed to fetch user data due to fetch error", err),
	}
}

func (p *Provider) userInfoURL(token string) string {
	return p.apiBaseURL + "/oauth/userinfo/?access_token=" + url.QueryEscape(token)
}

// Login returns the current session when the cached token checks out. A
// transport failure is returned as is; any other failure sends the user agent
// to the authorization URL and returns auth.ErrRedirected.
func (p *Provider) Login(ctx context.Context, s *auth.Session) (*auth.SessionResult, error) {
	result, err := p.CheckSession(ctx, s, false)
	if err == nil {
		return result, nil
	}

	if auth.IsTransport(err) {
		return nil, errors.Unwrap(err)
	}

	authURL := s.AuthorizationURL()
	if authURL == "" {
		return nil, auth.ErrNotInitialized
	}

	p.logger.Info("Redirecting to authorization endpoint", logger.SessionID(s.ID), zap.String("reason", err.Error()))
	if err := p.navigator.Navigate(ctx, authURL); err != nil {
		return nil, fmt.Errorf("battlenet: navigate to authorization endpoint: %w", err)
	}
	return nil, auth.ErrRedirected
}

// Logout discards the cached token
func (p *Provider) Logout(_ context.Context, s *auth.Session) error {
	s.ClearAccessToken()
	return nil
}

// MapUser normalizes a Battle.net identity and token record
func (p *Provider) MapUser(raw auth.RawUser) auth.User {
	return MapUser(raw)
}

// MapUser normalizes a Battle.net identity and token record. Battle.net does
// not expose an email address.
func MapUser(raw auth.RawUser) auth.User {
	return auth.User{
		Profile: auth.Profile{
			ID:   raw.Data.String("id"),
			Name: raw.Data.String(displayNameField),
		},
		Token: auth.Token{
			AccessToken: raw.AccessToken,
			ExpiresAt:   raw.ExpiresIn,
		},
	}
}
