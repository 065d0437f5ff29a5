package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/internal/config"
	"github.com/naotama2002/social-login-go/internal/logger"
	"github.com/naotama2002/social-login-go/internal/providers"
	"github.com/naotama2002/social-login-go/internal/utils"
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

	l, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Name: "social-login"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = l.Sync() }()

	registry, err := providers.NewRegistry(cfg, l, auth.NewBrowserNavigator(l, !cfg.NoBrowser))
	if err != nil {
		l.Fatal("Failed to create providers", zap.Error(err))
	}
	p, err := registry.Get(cfg.Provider)
	if err != nil {
		l.Fatal("Unknown provider", zap.Error(err), zap.Strings("available", registry.Names()))
	}

	app := &app{cfg: cfg, provider: p, logger: l.With(logger.Provider(p.Name())), out: os.Stdout}
	if err := app.run(context.Background()); err != nil {
		l.Error("Login failed", zap.Error(err))
		os.Exit(1)
	}
}

type app struct {
	cfg      *config.Config
	provider auth.Provider
	logger   *zap.Logger
	out      io.Writer

	// landingSource overrides the callback server in tests
	landingSource func(ctx context.Context) (string, error)
}

func (a *app) run(ctx context.Context) error {
	if a.cfg.LandingURL != "" {
		return a.complete(ctx, a.cfg.LandingURL)
	}

	waitForLanding, stop, err := a.landingReceiver()
	if err != nil {
		return err
	}
	defer stop()

	sess := auth.NewSession()
	if _, err := a.provider.Initialize(ctx, sess, a.cfg.AuthConfig(), auth.Page{}); err != nil {
		return err
	}

	result, err := a.provider.Login(ctx, sess)
	if err == nil {
		return a.printUser(result.RawUser(0))
	}
	if !errors.Is(err, auth.ErrRedirected) {
		return err
	}

	if waitForLanding == nil {
		fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n  %s\n\nthen run again with -landing-url set to the page you land on.\n", sess.AuthorizationURL())
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.LandingTimeout)
	defer cancel()
	landing, err := waitForLanding(waitCtx)
	if err != nil {
		return fmt.Errorf("waiting for redirect landing: %w", err)
	}
	return a.complete(ctx, landing)
}

// landingReceiver starts the callback server when the redirect URI points at
// this machine. It returns a nil wait func otherwise.
func (a *app) landingReceiver() (func(context.Context) (string, error), func(), error) {
	if a.landingSource != nil {
		return a.landingSource, func() {}, nil
	}

	port := a.cfg.CallbackPort()
	if port == 0 {
		return nil, func() {}, nil
	}

	cs := auth.NewCallbackServer(port, a.cfg.CallbackPath(), a.logger)
	if err := cs.Start(); err != nil {
		return nil, nil, err
	}
	shutdown := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cs.Shutdown(ctx)
	}
	utils.SetupSignalHandlers(a.logger, shutdown)

	return cs.WaitForLanding, func() { _ = shutdown() }, nil
}

// complete runs the callback phase in a fresh session, as a reloaded page would
func (a *app) complete(ctx context.Context, landingURL string) error {
	page, err := auth.ParsePage(landingURL)
	if err != nil {
		return err
	}

	sess := auth.NewSession()
	if _, err := a.provider.Initialize(ctx, sess, a.cfg.AuthConfig(), page); err != nil {
		return err
	}

	result, err := a.provider.CheckSession(ctx, sess, false)
	if err != nil {
		return err
	}
	a.logger.Info("Signed in", logger.SessionID(sess.ID))
	return a.printUser(result.RawUser(page.ExpiresIn()))
}

func (a *app) printUser(raw auth.RawUser) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(a.provider.MapUser(raw))
}
