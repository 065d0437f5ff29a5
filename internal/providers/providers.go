// Package providers builds the provider registry the commands share.
package providers

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/naotama2002/social-login-go/auth"
	"github.com/naotama2002/social-login-go/auth/battlenet"
	"github.com/naotama2002/social-login-go/internal/config"
	"github.com/naotama2002/social-login-go/internal/httpclient"
	"github.com/naotama2002/social-login-go/internal/logger"
)

// NewRegistry creates the registry of every supported provider
func NewRegistry(cfg *config.Config, l *zap.Logger, navigator auth.Navigator) (*auth.Registry, error) {
	if l == nil {
		l = zap.NewNop()
	}

	httpConfig := httpclient.DefaultConfig()
	if cfg.HTTPTimeout > 0 {
		httpConfig.Timeout = cfg.HTTPTimeout
	}
	if cfg.HTTPMaxRetries > 0 {
		httpConfig.MaxRetries = cfg.HTTPMaxRetries
		httpConfig.RetryDelay = 500 * time.Millisecond
	}
	transport := httpclient.New(httpConfig)

	bnet, err := battlenet.New(battlenet.Options{
		Region:     cfg.Region,
		APIBaseURL: cfg.APIBaseURL,
		Transport:  transport,
		Navigator:  navigator,
		Logger:     l.With(logger.Region(cfg.Region)),
	})
	if err != nil {
		return nil, fmt.Errorf("create battlenet provider: %w", err)
	}

	return auth.NewRegistry(bnet)
}
