// Package server renders the dashboard over HTTP: the HTML page, chart PNGs,
// JSON views of the table and KPIs, and an Excel export of the filtered rows.
package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"labordash/internal/metrics"
	"labordash/internal/view"
)

//go:embed templates/*.html
var templateFiles embed.FS

const defaultChartCacheSize = 64

type Options struct {
	DevMode bool
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// ChartCacheSize bounds the number of rendered PNGs kept in memory.
	ChartCacheSize int
}

type Server struct {
	router  *gin.Engine
	loader  *view.Loader
	logger  *zap.Logger
	metrics *metrics.Metrics
	charts  *lru.Cache[string, []byte]
}

func New(loader *view.Loader, opts Options) (*Server, error) {
	if loader == nil {
		return nil, errors.New("loader is required")
	}
	if !opts.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.ChartCacheSize
	if size <= 0 {
		size = defaultChartCacheSize
	}
	charts, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	templates, err := template.New("").ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:  gin.New(),
		loader:  loader,
		logger:  logger.Named("server"),
		metrics: opts.Metrics,
		charts:  charts,
	}
	s.router.SetHTMLTemplate(templates)
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery(), s.observe)

	s.router.GET("/", s.index)
	s.router.GET("/charts/:panel", s.chart)
	s.router.GET("/export.xlsx", s.export)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	{
		api.GET("/table", s.apiTable)
		api.GET("/kpis", s.apiKPIs)
	}
}

// observe logs each request and counts it by matched route and status.
func (s *Server) observe(c *gin.Context) {
	started := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	s.metrics.HTTPRequest(route, status)
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(started)),
	)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
