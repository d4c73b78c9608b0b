package client

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleNutritionist, auth.RoleAdmin))
	staff.POST("/newclients", h.CreateIntake)
	staff.PUT("/newclients/:clientId", h.UpdateIntake)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.DELETE("/newclients/:clientId", h.DeleteIntake)
	admin.PUT("/clients/:clientId", h.UpdateClient)
	admin.DELETE("/clients/:clientId", h.DeleteClient)
}

// CreateIntake onboards a client from the intake form.
func (h *Handler) CreateIntake(c echo.Context) error {
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req IntakeRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	actor := auth.PrincipalFromContext(c.Request().Context()).Name
	res, err := h.svc.CreateIntake(c.Request().Context(), req, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"ok":         true,
		"company_id": res.CompanyID,
		"client_id":  res.ClientID,
	})
}

type intakePatchRequest struct {
	Name                 *string          `json:"name"`
	ContactInfo          *string          `json:"contact_info"`
	Age                  httputil.FlexInt `json:"age"`
	MedicalHistory       *string          `json:"medical_history"`
	CurrentCondition     *string          `json:"current_condition"`
	AssignedNutritionist *string          `json:"assigned_nutritionist"`
	FirstFollowupAt      *string          `json:"first_followup_at"`
	Status               *string          `json:"status"`
	Requirements         *string          `json:"requirements"`
	PresentReadings      *string          `json:"present_readings"`
	NextTarget           *string          `json:"next_target"`
	GivenPlan            *string          `json:"given_plan"`
	Notes                *string          `json:"notes"`
}

func (r *intakePatchRequest) toPatch() (IntakePatch, error) {
	p := IntakePatch{
		Name:                 r.Name,
		ContactInfo:          r.ContactInfo,
		Age:                  r.Age,
		MedicalHistory:       r.MedicalHistory,
		CurrentCondition:     r.CurrentCondition,
		AssignedNutritionist: r.AssignedNutritionist,
		Requirements:         r.Requirements,
		PresentReadings:      r.PresentReadings,
		NextTarget:           r.NextTarget,
		GivenPlan:            r.GivenPlan,
		Notes:                r.Notes,
	}
	if r.FirstFollowupAt != nil {
		at, err := httputil.ParseTime(*r.FirstFollowupAt)
		if err != nil {
			return p, err
		}
		p.FirstFollowupAt = at
	}
	if r.Status != nil && *r.Status != "" {
		p.Status = r.Status
	}
	return p, nil
}

// UpdateIntake edits the intake row of a client.
func (h *Handler) UpdateIntake(c echo.Context) error {
	clientID, err := httputil.ParamInt(c, "clientId")
	if err != nil {
		return apperr.Invalid("Bad clientId")
	}
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req intakePatchRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	p, err := req.toPatch()
	if err != nil {
		return err
	}
	actor := auth.PrincipalFromContext(c.Request().Context()).Name
	in, err := h.svc.UpdateIntake(c.Request().Context(), clientID, p, actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "client": in})
}

func (h *Handler) DeleteIntake(c echo.Context) error {
	clientID, err := httputil.ParamInt(c, "clientId")
	if err != nil {
		return apperr.Invalid("Bad clientId")
	}
	if err := h.svc.DeleteIntake(c.Request().Context(), clientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "deleted_client_id": clientID})
}

// UpdateClient applies a typed patch to the master record.
func (h *Handler) UpdateClient(c echo.Context) error {
	clientID, err := httputil.ParamInt(c, "clientId")
	if err != nil {
		return apperr.Invalid("Invalid client_id")
	}
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var p ClientPatch
	if err := httputil.Bind(c, &p); err != nil {
		return err
	}
	cl, err := h.svc.UpdateClient(c.Request().Context(), clientID, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "client": cl})
}

func (h *Handler) DeleteClient(c echo.Context) error {
	clientID, err := httputil.ParamInt(c, "clientId")
	if err != nil {
		return apperr.Invalid("Invalid client_id")
	}
	if err := h.svc.DeleteClient(c.Request().Context(), clientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "deleted_client_id": clientID})
}

// ProfileIntakeRequest is the body of the profile intake edit. Empty
// first_followup_at and status are ignored; name cannot be changed here.
type ProfileIntakeRequest struct {
	ContactInfo          *string          `json:"contact_info"`
	Age                  httputil.FlexInt `json:"age"`
	MedicalHistory       *string          `json:"medical_history"`
	CurrentCondition     *string          `json:"current_condition"`
	AssignedNutritionist *string          `json:"assigned_nutritionist"`
	FirstFollowupAt      string           `json:"first_followup_at"`
	Status               string           `json:"status"`
	Notes                *string          `json:"notes"`
}

func (r ProfileIntakeRequest) ToPatch() (IntakePatch, error) {
	p := IntakePatch{
		ContactInfo:          r.ContactInfo,
		Age:                  r.Age,
		MedicalHistory:       r.MedicalHistory,
		CurrentCondition:     r.CurrentCondition,
		AssignedNutritionist: r.AssignedNutritionist,
		Notes:                r.Notes,
	}
	at, err := httputil.ParseTime(r.FirstFollowupAt)
	if err != nil {
		return p, err
	}
	p.FirstFollowupAt = at
	if r.Status != "" {
		s := r.Status
		p.Status = &s
	}
	return p, nil
}
