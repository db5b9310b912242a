package http

import (
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appconfig "github.com/saker-ai/realtime-assistant/internal/config"
	"github.com/saker-ai/realtime-assistant/internal/ws"
	"github.com/saker-ai/realtime-assistant/webassets"
)

// NewRouter mounts health, metrics, the browser websocket and the frontend.
// metricsHandler may be nil.
func NewRouter(cfg appconfig.Config, wsHandler *ws.Handler, metricsHandler http.Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": wsHandler.Sessions()})
	})

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	router.GET("/client-ws", func(c *gin.Context) {
		wsHandler.Handle(c.Writer, c.Request)
	})

	if cfg.FrontendDir != "" {
		mountDiskFrontend(router, logger, cfg.FrontendDir)
	} else if !mountEmbeddedFrontend(router, logger) {
		logger.Warn("no frontend available")
	}
	return router
}

func mountDiskFrontend(router *gin.Engine, logger *zap.Logger, dir string) {
	logger.Info("serving disk frontend", zap.String("source", dir))
	router.Static("/frontend", dir)
	router.GET("/", func(c *gin.Context) {
		c.File(filepath.Join(dir, "index.html"))
	})
}

func mountEmbeddedFrontend(router *gin.Engine, logger *zap.Logger) bool {
	embeddedRoot, err := webassets.Subdir("assistant")
	if err != nil {
		logger.Warn("failed to load embedded frontend assets", zap.Error(err))
		return false
	}
	indexHTML, err := fs.ReadFile(embeddedRoot, "index.html")
	if err != nil {
		logger.Warn("missing embedded index.html", zap.Error(err))
		return false
	}

	logger.Info("serving embedded frontend assets", zap.String("source", "webassets/assistant"))
	router.StaticFS("/frontend", http.FS(embeddedRoot))
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
	return true
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/health" || c.Request.URL.Path == "/metrics" {
			return
		}
		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("latency", time.Since(start)),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	}
}
