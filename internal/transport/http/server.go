package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/auth"
	"github.com/bittu292021/chatbox/internal/config"
	"github.com/bittu292021/chatbox/internal/core"
	"github.com/bittu292021/chatbox/internal/metrics"
)

// NewServer builds an HTTP server with the WebSocket endpoint, health,
// metrics and the presence API.
func NewServer(hub *core.Hub, verifier *auth.Verifier, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(hub, verifier, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewHandler mounts /ws on a plain ServeMux and everything else on the gin
// engine. The upgrade must not pass through gin: its response writer counts
// the 101 as written and then refuses to hijack the connection.
func NewHandler(hub *core.Hub, verifier *auth.Verifier, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, cfg, logger))
	mux.Handle("/", NewRouter(hub, verifier, logger))
	return mux
}

// NewRouter builds the gin engine for the plain HTTP routes.
func NewRouter(hub *core.Hub, verifier *auth.Verifier, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(logger))

	r.GET("/health", healthHandler)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	presence := NewPresenceHandlers(hub, logger)
	api := r.Group("/api", AuthMiddleware(verifier, logger))
	api.GET("/presence", presence.ListOnlineUsers)
	api.GET("/presence/:userID", presence.GetUserPresence)

	return r
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
