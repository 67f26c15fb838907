package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/prizm/internal/assistant"
	"github.com/mohammad-safakhou/prizm/internal/bus"
	"github.com/mohammad-safakhou/prizm/internal/hub"
	"github.com/mohammad-safakhou/prizm/internal/matching"
	"github.com/mohammad-safakhou/prizm/internal/store"
	"github.com/mohammad-safakhou/prizm/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface is wired to.
type Deps struct {
	Store     *store.Store
	Matcher   *matching.Matcher
	Assistant *assistant.Assistant
	Bus       bus.Bus
	Hub       *hub.Hub
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
	// Provider and Broker are reported by /api/status.
	Provider string
	Broker   string
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	logger := d.Logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	if d.Hub != nil {
		e.GET("/ws", echo.WrapHandler(d.Hub))
	}

	api := e.Group("/api")
	(&StatusHandler{Provider: d.Provider, Broker: d.Broker, Started: time.Now()}).Register(api)
	(&UsersHandler{Store: d.Store}).Register(api.Group("/users"))
	(&BusinessesHandler{Store: d.Store, Matcher: d.Matcher, Logger: logger}).Register(api.Group("/businesses"))
	msgs := &MessagesHandler{Store: d.Store, Assistant: d.Assistant, Bus: d.Bus, Logger: logger}
	msgs.Register(api.Group("/messages"))
	api.POST("/chat", msgs.chat)
	(&TriageHandler{Matcher: d.Matcher}).Register(api)
	return e
}

// Handler wraps e with server-side tracing; service names the server spans.
func Handler(e *echo.Echo, service string) http.Handler {
	if service == "" {
		service = "prizm"
	}
	return otelhttp.NewHandler(e, service,
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" && r.URL.Path != "/metrics" }))
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler, logger *zap.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// errorHandler renders every failure as {"error": msg}; validation failures carry their fields.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		body := map[string]any{}

		var he *echo.HTTPError
		var fields models.FieldErrors
		switch {
		case errors.As(err, &fields):
			code = http.StatusBadRequest
			body["error"] = "validation failed"
			body["fields"] = fields
		case errors.Is(err, store.ErrNotFound):
			code = http.StatusNotFound
			body["error"] = err.Error()
		case errors.Is(err, store.ErrConflict):
			code = http.StatusConflict
			body["error"] = err.Error()
		case errors.As(err, &he):
			code = he.Code
			body["error"] = fmt.Sprint(he.Message)
		default:
			body["error"] = "internal server error"
		}

		req := c.Request()
		fieldsLog := []zap.Field{
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", fieldsLog...)
		} else {
			logger.Debug("request rejected", fieldsLog...)
		}
		if !c.Response().Committed {
			if req.Method == http.MethodHead {
				_ = c.NoContent(code)
				return
			}
			_ = c.JSON(code, body)
		}
	}
}

func bindJSON(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func intParam(c echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return n, nil
}
