package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LandingMarkerParam is the query parameter every accepted landing URL carries
const LandingMarkerParam = "rslCallback"

// CallbackServer receives redirect landings for native hosts. The token sits in
// the URL fragment, which browsers never send, so the landing page posts its
// own location back to the server.
type CallbackServer struct {
	port   int
	path   string
	logger *zap.Logger

	engine *gin.Engine
	server *http.Server

	landings chan string

	mu     sync.Mutex
	landed bool
}

type landingRequest struct {
	URL string `json:"url" binding:"required"`
}

// NewCallbackServer creates a callback server for path. A port of 0 selects the
// first free port from 8000 when started.
func NewCallbackServer(port int, path string, logger *zap.Logger) *CallbackServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = "/oauth/callback"
	}

	gin.SetMode(gin.ReleaseMode)
	cs := &CallbackServer{
		port:     port,
		path:     path,
		logger:   logger,
		engine:   gin.New(),
		landings: make(chan string, 1),
	}
	cs.engine.Use(gin.Recovery())
	cs.engine.GET(path, cs.handleLandingPage)
	cs.engine.POST(path+"/landing", cs.handleLanding)
	cs.engine.GET("/wait-for-auth", cs.handleWaitForAuth)
	return cs
}

// Handler returns the HTTP handler serving the callback routes
func (cs *CallbackServer) Handler() http.Handler {
	return cs.engine
}

// Port returns the port the server listens on once started
func (cs *CallbackServer) Port() int {
	return cs.port
}

// Start binds the listener and serves in the background
func (cs *CallbackServer) Start() error {
	port := cs.port
	if port <= 0 {
		p, err := findAvailablePort(8000)
		if err != nil {
			return fmt.Errorf("failed to find available port: %w", err)
		}
		port = p
	}

	ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	cs.port = port
	cs.server = &http.Server{Handler: cs.engine}

	go func() {
		cs.logger.Info("Starting callback server", zap.Int("port", port), zap.String("path", cs.path))
		if err := cs.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cs.logger.Error("Callback server error", zap.Error(err))
		}
	}()
	return nil
}

// WaitForLanding blocks until a landing URL has been posted or ctx is done
func (cs *CallbackServer) WaitForLanding(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case landing := <-cs.landings:
		return landing, nil
	}
}

// Shutdown stops the server
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	if cs.server == nil {
		return nil
	}
	return cs.server.Shutdown(ctx)
}

func (cs *CallbackServer) handleLandingPage(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage(cs.path+"/landing")))
}

func (cs *CallbackServer) handleLanding(c *gin.Context) {
	var req landingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "landing url is required"})
		return
	}

	page, err := ParsePage(req.URL)
	if err != nil || page.URL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid landing url"})
		return
	}
	if page.Query(LandingMarkerParam) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "landing url has no callback marker"})
		return
	}

	cs.mu.Lock()
	first := !cs.landed
	cs.landed = true
	cs.mu.Unlock()

	if first {
		cs.landings <- req.URL
		cs.logger.Info("Landing received", zap.String("provider", page.Query(LandingMarkerParam)))
	} else {
		cs.logger.Debug("Duplicate landing dropped")
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (cs *CallbackServer) handleWaitForAuth(c *gin.Context) {
	cs.mu.Lock()
	landed := cs.landed
	cs.mu.Unlock()

	if landed {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusAccepted)
}

func landingPage(postPath string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>Signing in</title>
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1 id="status">Completing sign in...</h1>
		<p id="detail"></p>
	</div>
	<script>
		fetch(%q, {
			method: "POST",
			headers: {"Content-Type": "application/json"},
			body: JSON.stringify({url: window.location.href})
		}).then(function (resp) {
			if (!resp.ok) { throw new Error("HTTP " + resp.status); }
			document.getElementById("status").textContent = "Sign in complete";
			document.getElementById("detail").textContent = "You can now close this window and return to the application.";
		}).catch(function (err) {
			document.getElementById("status").textContent = "Sign in failed";
			document.getElementById("detail").textContent = String(err);
		});
	</script>
</body>
</html>
`, postPath)
}

func findAvailablePort(preferredPort int) (int, error) {
	port := preferredPort

	for i := 0; i < 100; i++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			_ = ln.Close()
			return port, nil
		}
		port++
	}

	return 0, fmt.Errorf("could not find an available port")
}
