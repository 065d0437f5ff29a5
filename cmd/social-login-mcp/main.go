package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/internal/config"
	"github.com/naotama2002/social-login-go/internal/logger"
	"github.com/naotama2002/social-login-go/internal/mcpserver"
	"github.com/naotama2002/social-login-go/internal/providers"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// stdout carries the MCP protocol; the logger writes to stderr
	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Name: "social-login-mcp"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = l.Sync() }()

	registry, err := providers.NewRegistry(cfg, l, auth.NewBrowserNavigator(l, !cfg.NoBrowser))
	if err != nil {
		l.Fatal("Failed to create providers", zap.Error(err))
	}

	s := mcpserver.New(registry, cfg.AuthConfig(), l)
	l.Info("Serving MCP on stdio", zap.Strings("providers", registry.Names()))
	if err := s.Serve(); err != nil {
		l.Fatal("MCP server stopped", zap.Error(err))
	}
}
