package questionnaire

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated probe.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/formdata/health", h.Health)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	anyone := api.Group("", auth.RequireRole(auth.RoleClient, auth.RoleNutritionist, auth.RoleAdmin))
	anyone.POST("/formdata", h.Submit)
	anyone.GET("/formdata/mine/latest", h.MyLatest)
}

func (h *Handler) Submit(c echo.Context) error {
	var req struct {
		Answers Answers `json:"answers"`
	}
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	doc, err := h.svc.Submit(ctx, auth.UserIDFromContext(ctx), req.Answers)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "doc": doc})
}

func (h *Handler) MyLatest(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := h.svc.Latest(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"doc": doc})
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
