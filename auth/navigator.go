package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"
)

// Navigator sends the user agent to a URL, replacing the current page
type Navigator interface {
	Navigate(ctx context.Context, rawURL string) error
}

// NavigatorFunc adapts a function to the Navigator interface
type NavigatorFunc func(ctx context.Context, rawURL string) error

// Navigate calls f
func (f NavigatorFunc) Navigate(ctx context.Context, rawURL string) error {
	return f(ctx, rawURL)
}

const browserOpenAttempts = 3

// BrowserNavigator opens URLs in the system browser
type BrowserNavigator struct {
	logger      *zap.Logger
	openBrowser bool
	open        func(string) error
	retryDelay  time.Duration
}

// RedirectBrowserOutput sends the output of launched browser processes to w
// instead of this process's stdout and stderr. The setting is process wide.
func RedirectBrowserOutput(w io.Writer) {
	browser.Stdout = w
	browser.Stderr = w
}

// NewBrowserNavigator creates a BrowserNavigator. With openBrowser false the URL
// is only logged for the user to open by hand.
func NewBrowserNavigator(logger *zap.Logger, openBrowser bool) *BrowserNavigator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserNavigator{
		logger:      logger,
		openBrowser: openBrowser,
		open:        browser.OpenURL,
		retryDelay:  500 * time.Millisecond,
	}
}

// Navigate opens rawURL in the default browser. Failing to start a browser is
// not an error: the URL is logged so it can be opened manually.
func (n *BrowserNavigator) Navigate(ctx context.Context, rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("only http and https URLs are allowed")
	}

	n.logger.Info("Please authorize this client by visiting the authorization URL", zap.String("url", rawURL))
	if !n.openBrowser {
		return nil
	}

	var openErr error
	for i := 0; i < browserOpenAttempts; i++ {
		openErr = n.open(rawURL)
		if openErr == nil {
			n.logger.Info("Browser opened automatically")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retryDelay):
		}
	}

	n.logger.Warn("Could not open browser automatically, please open the URL above manually", zap.Error(openErr))
	return nil
}
