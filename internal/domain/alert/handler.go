package alert

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/httputil"
	"github.com/wellness/wellness/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleNutritionist, auth.RoleAdmin))
	staff.GET("/alerts", h.List)
	staff.POST("/alerts/mark-read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	since, err := httputil.ParseTime(c.QueryParam("since"))
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c, pagination.Alerts)
	ctx := c.Request().Context()
	items, err := h.svc.List(ctx, auth.PrincipalFromContext(ctx).Name, since, pg.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"alerts": items})
}

func (h *Handler) MarkRead(c echo.Context) error {
	ctx := c.Request().Context()
	if _, err := h.svc.MarkRead(ctx, auth.PrincipalFromContext(ctx).Name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
