// Package server exposes the dataset pipeline over HTTP: a JSON API for the
// rendering layer and a websocket feed that pushes refreshed datasets.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hodlflow/config"
	"hodlflow/internal/dataset"
	"hodlflow/internal/merge"
	"hodlflow/logger"
	"hodlflow/models"
)

// Server hosts the Gin-powered API for Hodlflow.
type Server struct {
	cfg        config.ServerConfig
	svc        *dataset.Service
	hub        *Hub
	log        *logger.Log
	httpServer *http.Server
}

// NewServer constructs the API server when the server feature is enabled.
// When disabled the returned server is nil.
func NewServer(cfg config.ServerConfig, svc *dataset.Service) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)

	s := &Server{
		cfg: cfg,
		svc: svc,
		hub: NewHub(),
		log: logger.GetLogger(),
	}
	svc.SetOnRefresh(s.hub.BroadcastDataset)
	return s
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.hub.Start(ctx)
	defer s.hub.Stop()

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.buildRouter(),
	}

	s.log.WithComponent("server").WithFields(logger.Fields{"address": s.cfg.Address}).Info("api server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() *gin.Engine {
	if config.IsProductionLike(config.AppEnvironment()) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		s.log.WithComponent("server").WithError(err).Warn("failed to clear trusted proxies")
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	{
		api.GET("/dataset", s.handleDataset)
		api.GET("/chart", s.handleChart)
		api.GET("/summary", s.handleSummary)
		api.GET("/indicators/:field", s.handleIndicators)
		api.GET("/holders/events", s.handleHolderEvents)
		api.GET("/holders/ranking", s.handleRanking)
		api.GET("/metrics/:field/delta", s.handleMetricDelta)
		api.GET("/metrics/:field/compare", s.handleCompare)
		api.GET("/lp", s.handleLPMetadata)
		api.POST("/refresh", s.handleRefresh)
	}

	router.GET("/ws", s.handleWebsocket)

	return router
}

// rangeFromQuery reads the display range from query parameters: either
// ?days=N for a preset, or ?from=YYYY-MM-DD[&to=YYYY-MM-DD] for a custom
// window. With neither, the configured default preset applies.
func (s *Server) rangeFromQuery(c *gin.Context) (models.DataRange, bool) {
	if days := c.Query("days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return models.DataRange{}, false
		}
		return models.Preset(n), true
	}

	if fromStr := c.Query("from"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return models.DataRange{}, false
		}
		var to time.Time
		if toStr := c.Query("to"); toStr != "" {
			to, err = time.Parse("2006-01-02", toStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
				return models.DataRange{}, false
			}
			if to.Before(from) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
				return models.DataRange{}, false
			}
		}
		return models.Custom(from, to), true
	}

	return s.svc.DefaultRange(), true
}

func (s *Server) handleDataset(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	ds, err := s.svc.Dataset(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (s *Server) handleChart(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	cd, err := s.svc.ChartData(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cd)
}

func (s *Server) handleSummary(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	sum, err := s.svc.Summarize(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) handleIndicators(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	set, err := s.svc.Indicators(c.Request.Context(), r, c.Param("field"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleHolderEvents(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	events, err := s.svc.HolderEvents(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleRanking(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	ranking, err := s.svc.Ranking(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": ranking})
}

func (s *Server) handleMetricDelta(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	delta, err := s.svc.MetricDelta(c.Request.Context(), r, c.Param("field"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, delta)
}

func (s *Server) handleCompare(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	cmp, err := s.svc.Compare(c.Request.Context(), r, c.Param("field"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (s *Server) handleLPMetadata(c *gin.Context) {
	meta, err := s.svc.LPMetadata(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (s *Server) handleRefresh(c *gin.Context) {
	r, ok := s.rangeFromQuery(c)
	if !ok {
		return
	}
	ds, err := s.svc.Refresh(c.Request.Context(), r)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"range_key": ds.RangeKey,
		"snapshots": len(ds.Snapshots),
	})
}

// renderError maps pipeline errors to HTTP statuses. A range with no
// published data at all is the only user-visible fetch failure.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dataset.ErrUnknownField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, merge.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": "unable to retrieve data, try again later"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.Status(http.StatusRequestTimeout)
	default:
		s.log.WithComponent("server").WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// normalizeAddress fills in a usable listen address from partial forms like
// ":8080" or "localhost".
func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return "0.0.0.0:8080"
	}
	if strings.HasPrefix(address, ":") {
		return "0.0.0.0" + address
	}
	if !strings.Contains(address, ":") {
		return address + ":8080"
	}
	if u, err := url.Parse("//" + address); err == nil && u.Host != "" {
		if _, _, err := net.SplitHostPort(u.Host); err == nil {
			return u.Host
		}
	}
	return address
}
