package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adanyl0v/go-task-tracker/internal/config"
	"github.com/adanyl0v/go-task-tracker/internal/delivery/http/v1"
)

func (a *App) newRouter(v1Handler v1.Handler) (*gin.Engine, error) {
	if a.cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpMetrics, err := newHTTPMetricsMiddleware(a.registry)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(v1Handler.HandleRequestLoggerMiddleware)
	router.Use(httpMetrics)
	router.Use(newCORSMiddleware(a.cfg.CORS))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	v1.RegisterRoutes(router, v1Handler)
	return router, nil
}

func newCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-ID")
	corsCfg.ExposeHeaders = []string{"X-Request-ID", "X-Audit-Status"}
	switch {
	case !cfg.AllowAllOrigins():
		corsCfg.AllowOrigins = cfg.Origins
	case cfg.Credentials:
		// Browsers reject a wildcard origin on credentialed requests.
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	default:
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowCredentials = cfg.Credentials
	return cors.New(corsCfg)
}

func newHTTPMetricsMiddleware(reg prometheus.Registerer) (gin.HandlerFunc, error) {
	requests, err := registerCollector(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tasktracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"}))
	if err != nil {
		return nil, err
	}

	duration, err := registerCollector(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tasktracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"}))
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}, nil
}

// listenAndServeHTTP serves until ctx is cancelled, then shuts the
// server down within the configured timeout.
func (a *App) listenAndServeHTTP(ctx context.Context, handler http.Handler) error {
	httpCfg := a.cfg.HTTP
	server := &http.Server{
		Addr:              net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.logger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().
		Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		return err
	}
	a.logger.Info().Msg("shut down http server")
	return nil
}
