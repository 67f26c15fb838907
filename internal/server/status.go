package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type StatusHandler struct {
	Provider string
	Broker   string
	Started  time.Time
}

func (h *StatusHandler) Register(g *echo.Group) {
	g.GET("/status", h.status)
}

func (h *StatusHandler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"provider":  h.Provider,
		"broker":    h.Broker,
		"uptime":    time.Since(h.Started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}
