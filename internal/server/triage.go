package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/prizm/internal/matching"
	"github.com/mohammad-safakhou/prizm/models"
)

// TriageHandler serves the emergency classifier.
type TriageHandler struct {
	Matcher *matching.Matcher
}

func (h *TriageHandler) Register(g *echo.Group) {
	g.POST("/emergency", h.emergency)
}

func (h *TriageHandler) emergency(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return models.FieldErrors{"query": "required"}
	}
	return c.JSON(http.StatusOK, h.Matcher.DetectEmergency(c.Request().Context(), query))
}
