package rollup

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/identity"
	"github.com/wellness/wellness/internal/platform/apperr"
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
	staff.GET("/summary", h.Summary)
	staff.GET("/calendar", h.Calendar)
	staff.GET("/clients", h.AllClients)
	staff.GET("/companies/:companyId/clients", h.CompanyClients)
	staff.GET("/companies/:companyId/clients/:clientId/profile", h.Profile)
	staff.PATCH("/companies/:companyId/clients/:clientId/intake", h.EditIntake)
	staff.GET("/directory/clients", h.Directory)
	staff.GET("/directory/users/:userId", h.GetFormUser)
	staff.PATCH("/directory/users/:userId", h.UpdateFormUser)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/directory/users/:userId", h.DeleteFormUser)
}

func principal(c echo.Context) auth.Principal {
	return auth.PrincipalFromContext(c.Request().Context())
}

// dateRange reads the from/to query parameters. to covers its whole day.
func dateRange(c echo.Context) (from, to *time.Time, err error) {
	from, err = httputil.ParseTime(c.QueryParam("from"))
	if err != nil {
		return nil, nil, err
	}
	if s := strings.TrimSpace(c.QueryParam("to")); s != "" {
		day, err := httputil.ParseDay(s)
		if err != nil {
			return nil, nil, err
		}
		end := httputil.EndOfDay(day)
		to = &end
	}
	return from, to, nil
}

func (h *Handler) Summary(c echo.Context) error {
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Summary(c.Request().Context(), principal(c), SummaryQuery{
		Status:       c.QueryParam("status"),
		From:         from,
		To:           to,
		Nutritionist: c.QueryParam("nutritionist"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Calendar(c echo.Context) error {
	events, err := h.svc.Calendar(c.Request().Context(), principal(c),
		c.QueryParam("start"), c.QueryParam("end"), c.QueryParam("nutritionist"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"events": events})
}

func (h *Handler) AllClients(c echo.Context) error {
	page, err := h.svc.AllClients(c.Request().Context(), principal(c), pagination.FromContext(c, pagination.Clients))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) CompanyClients(c echo.Context) error {
	companyID, err := httputil.ParamInt(c, "companyId")
	if err != nil {
		return err
	}
	from, to, err := dateRange(c)
	if err != nil {
		return err
	}
	out, err := h.svc.CompanyClients(c.Request().Context(), principal(c), companyID, ListQuery{
		Status: c.QueryParam("status"),
		Q:      c.QueryParam("q"),
		From:   from,
		To:     to,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func profileIDs(c echo.Context) (companyID, clientID int64, err error) {
	companyID, err = httputil.ParamInt(c, "companyId")
	if err != nil {
		return 0, 0, apperr.Invalid("Invalid ids")
	}
	clientID, err = httputil.ParamInt(c, "clientId")
	if err != nil {
		return 0, 0, apperr.Invalid("Invalid ids")
	}
	return companyID, clientID, nil
}

func (h *Handler) Profile(c echo.Context) error {
	companyID, clientID, err := profileIDs(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Profile(c.Request().Context(), companyID, clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// EditIntake saves the profile intake form and returns the fresh profile.
func (h *Handler) EditIntake(c echo.Context) error {
	companyID, clientID, err := profileIDs(c)
	if err != nil {
		return err
	}
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req client.ProfileIntakeRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	patch, err := req.ToPatch()
	if err != nil {
		return err
	}
	p, err := h.svc.EditIntake(c.Request().Context(), companyID, clientID, patch, principal(c).Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Directory(c echo.Context) error {
	items, err := h.svc.Directory(c.Request().Context(), principal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "items": items})
}

func (h *Handler) GetFormUser(c echo.Context) error {
	out, err := h.svc.FormUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) UpdateFormUser(c echo.Context) error {
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var patch identity.UserPatch
	if err := httputil.Bind(c, &patch); err != nil {
		return err
	}
	u, err := h.svc.UpdateFormUser(c.Request().Context(), c.Param("userId"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "user": u})
}

func (h *Handler) DeleteFormUser(c echo.Context) error {
	id := c.Param("userId")
	if err := h.svc.DeleteFormUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "deleted_user_id": id})
}
