package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/httputil"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/register", h.Register)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/client/home", h.ClientHome,
		auth.RequireRole(auth.RoleClient, auth.RoleNutritionist, auth.RoleAdmin))
}

func (h *Handler) Login(c echo.Context) error {
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req LoginRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	sess, created, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, sess)
}

func (h *Handler) Register(c echo.Context) error {
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req RegisterRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) ClientHome(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	home, err := h.svc.ClientHome(c.Request().Context(), p)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) || apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return apperr.Internal("Failed to load client home", err)
	}
	return c.JSON(http.StatusOK, home)
}
