// Package mcpserver exposes the login providers as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/internal/logger"
)

const (
	serverName    = "social-login"
	serverVersion = "0.1.0"
)

// Server hosts the MCP server. Each provider gets one session shared by all
// tool calls.
type Server struct {
	mcpServer *server.MCPServer
	registry  *auth.Registry
	config    auth.Config
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*auth.Session
}

type providerInput struct {
	Provider string `json:"provider"`
}

type completeLoginInput struct {
	Provider   string `json:"provider"`
	LandingURL string `json:"landing_url"`
}

// LoginURLResult is the output of login_url
type LoginURLResult struct {
	Provider         string              `json:"provider"`
	AuthorizationURL string              `json:"authorizationUrl,omitempty"`
	Session          *auth.SessionResult `json:"session,omitempty"`
}

// New creates an MCP server over the providers in registry
func New(registry *auth.Registry, cfg auth.Config, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
		registry: registry,
		config:   cfg,
		logger:   l,
		sessions: make(map[string]*auth.Session),
	}

	s.mcpServer.AddTool(listProvidersTool(), s.handleListProviders)
	s.mcpServer.AddTool(loginURLTool(), s.handleLoginURL)
	s.mcpServer.AddTool(completeLoginTool(), s.handleCompleteLogin)
	s.mcpServer.AddTool(checkSessionTool(), s.handleCheckSession)
	s.mcpServer.AddTool(logoutTool(), s.handleLogout)

	return s
}

// Serve starts the MCP server on stdio
func (s *Server) Serve() error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	claimStdout()
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// claimStdout keeps child processes off stdout, which carries the protocol
func claimStdout() {
	auth.RedirectBrowserOutput(os.Stderr)
}

func (s *Server) session(provider string) *auth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[provider]
	if !ok {
		sess = auth.NewSession()
		s.sessions[provider] = sess
	}
	return sess
}

func listProvidersTool() mcp.Tool {
	return mcp.NewTool(
		"list_providers",
		mcp.WithDescription("Lists the configured login providers"),
	)
}

func providerArg() mcp.ToolOption {
	return mcp.WithString("provider",
		mcp.Required(),
		mcp.Description("Login provider name, e.g. battlenet"),
	)
}

func loginURLTool() mcp.Tool {
	return mcp.NewTool(
		"login_url",
		mcp.WithDescription("Returns the provider authorization URL to open in a browser, or the current session when the cached token is still valid"),
		providerArg(),
	)
}

func completeLoginTool() mcp.Tool {
	return mcp.NewTool(
		"complete_login",
		mcp.WithDescription("Completes a login with the full URL the browser landed on after authorizing, fragment included"),
		providerArg(),
		mcp.WithString("landing_url",
			mcp.Required(),
			mcp.Description("Redirect landing URL including the #access_token fragment"),
		),
	)
}

func checkSessionTool() mcp.Tool {
	return mcp.NewTool(
		"check_session",
		mcp.WithDescription("Validates the cached access token against the provider identity endpoint"),
		providerArg(),
	)
}

func logoutTool() mcp.Tool {
	return mcp.NewTool(
		"logout",
		mcp.WithDescription("Discards the cached access token"),
		providerArg(),
	)
}

func bindArguments(request mcp.CallToolRequest, v any) error {
	raw, err := json.Marshal(request.Params.Arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) provider(request mcp.CallToolRequest, input *providerInput) (auth.Provider, *mcp.CallToolResult) {
	if err := bindArguments(request, input); err != nil {
		return nil, mcp.NewToolResultError("invalid arguments: " + err.Error())
	}
	if input.Provider == "" {
		return nil, mcp.NewToolResultError("provider is required")
	}
	p, err := s.registry.Get(input.Provider)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return p, nil
}

func (s *Server) handleListProviders(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.registry.Names())
}

func (s *Server) handleLoginURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input providerInput
	p, errResult := s.provider(request, &input)
	if errResult != nil {
		return errResult, nil
	}
	sess := s.session(p.Name())
	log := s.logger.With(logger.Provider(p.Name()), logger.SessionID(sess.ID))

	if _, err := p.Initialize(ctx, sess, s.config, auth.Page{}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := p.Login(ctx, sess)
	switch {
	case err == nil:
		log.Debug("Cached token still valid")
		return jsonResult(LoginURLResult{Provider: p.Name(), Session: result})
	case errors.Is(err, auth.ErrRedirected):
		return jsonResult(LoginURLResult{Provider: p.Name(), AuthorizationURL: sess.AuthorizationURL()})
	default:
		log.Warn("Login failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
}

func (s *Server) handleCompleteLogin(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input completeLoginInput
	if err := bindArguments(request, &input); err != nil {
		return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
	}
	if input.LandingURL == "" {
		return mcp.NewToolResultError("landing_url is required"), nil
	}
	p, errResult := s.provider(request, &providerInput{})
	if errResult != nil {
		return errResult, nil
	}

	page, err := auth.ParsePage(input.LandingURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sess := s.session(p.Name())
	if _, err := p.Initialize(ctx, sess, s.config, page); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := p.CheckSession(ctx, sess, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.logger.Info("Login completed", logger.Provider(p.Name()), logger.SessionID(sess.ID))
	return jsonResult(p.MapUser(result.RawUser(page.ExpiresIn())))
}

func (s *Server) handleCheckSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input providerInput
	p, errResult := s.provider(request, &input)
	if errResult != nil {
		return errResult, nil
	}

	result, err := p.CheckSession(ctx, s.session(p.Name()), false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result.Identity)
}

func (s *Server) handleLogout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input providerInput
	p, errResult := s.provider(request, &input)
	if errResult != nil {
		return errResult, nil
	}

	if err := p.Logout(ctx, s.session(p.Name())); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("logged out of " + p.Name()), nil
}
