package company

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleNutritionist, auth.RoleAdmin))
	staff.GET("/companies", h.ListCompanies)
}

func (h *Handler) ListCompanies(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.Internal("Failed to load companies", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"companies": items})
}
