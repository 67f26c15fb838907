package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/prizm/internal/store"
	"github.com/mohammad-safakhou/prizm/models"
)

type UsersHandler struct {
	Store *store.Store
}

func (h *UsersHandler) Register(g *echo.Group) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
}

func (h *UsersHandler) list(c echo.Context) error {
	users, err := h.Store.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHandler) get(c echo.Context) error {
	id, err := intParam(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Store.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UsersHandler) create(c echo.Context) error {
	var req models.NewUser
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	u, err := h.Store.CreateUser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}
