package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/prizm/internal/helpers"
	"github.com/mohammad-safakhou/prizm/internal/matching"
	"github.com/mohammad-safakhou/prizm/internal/store"
	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
)

type BusinessesHandler struct {
	Store   *store.Store
	Matcher *matching.Matcher
	Logger  *zap.Logger
}

func (h *BusinessesHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/search", h.search)
	g.POST("/categories", h.categories)
	g.GET("/:id", h.get)
}

func (h *BusinessesHandler) list(c echo.Context) error {
	items, err := h.Store.ListBusinesses(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BusinessesHandler) get(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Store.GetBusiness(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BusinessesHandler) create(c echo.Context) error {
	var req struct {
		UserID int `json:"userId"`
		models.NewBusiness
	}
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	req.NewBusiness = helpers.CleanBusiness(req.NewBusiness)
	errs := models.FieldErrors{}
	if err := req.NewBusiness.Validate(); err != nil {
		if fe, ok := err.(models.FieldErrors); ok {
			errs = fe
		} else {
			return err
		}
	}
	if req.UserID <= 0 {
		errs["userId"] = "required"
	}
	if len(errs) > 0 {
		return errs
	}
	b, err := h.Store.CreateBusiness(c.Request().Context(), req.UserID, req.NewBusiness)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

// search returns every business, ranked by the matcher. A blank query yields [].
func (h *BusinessesHandler) search(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusOK, []models.Business{})
	}
	ctx := c.Request().Context()
	candidates, err := h.Store.SearchBusinesses(ctx, query)
	if err != nil {
		return err
	}
	res := h.Matcher.Match(ctx, query, candidates)
	h.Logger.Debug("search",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", res.Matched),
		zap.Bool("fallback", res.Fallback),
	)
	return c.JSON(http.StatusOK, res.Businesses)
}

func (h *BusinessesHandler) categories(c echo.Context) error {
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
	ctx := c.Request().Context()
	catalogue, err := h.Store.ListCategories(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]int{"categories": h.Matcher.Categories(ctx, query, catalogue)})
}
