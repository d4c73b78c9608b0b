package followup

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
	staff.POST("/companies/:companyId/clients/:clientId/followups", h.CreateForClient)
	staff.POST("/followups", h.Create)
	staff.PATCH("/followups/:id/status", h.UpdateStatus)
}

type createRequest struct {
	CompanyID            httputil.FlexInt   `json:"company_id"`
	ClientID             httputil.FlexInt   `json:"client_id"`
	ScheduledAt          string             `json:"scheduled_at"`
	FollowupDate         string             `json:"followup_date"`
	Status               string             `json:"status"`
	Notes                string             `json:"notes"`
	AssignedNutritionist *string            `json:"assigned_nutritionist"`
	Requirements         *string            `json:"requirements"`
	PresentReadings      *string            `json:"present_readings"`
	NextTarget           *string            `json:"next_target"`
	GivenPlan            *string            `json:"given_plan"`
	WeightKg             httputil.FlexFloat `json:"weight_kg"`
	BMI                  httputil.FlexFloat `json:"bmi"`
	BP                   *string            `json:"bp"`
	Sugar                *string            `json:"sugar"`
}

func (r *createRequest) toFollowup() (*Followup, error) {
	if !r.CompanyID.Present || !r.ClientID.Present {
		return nil, apperr.Invalid("company_id and client_id are required")
	}
	if !r.CompanyID.Valid || !r.ClientID.Valid {
		return nil, apperr.Invalid("company_id and client_id must be numbers")
	}
	sched, err := httputil.ParseTime(r.ScheduledAt)
	if err != nil {
		return nil, err
	}
	legacy, err := httputil.ParseTime(r.FollowupDate)
	if err != nil {
		return nil, err
	}
	return &Followup{
		CompanyID:            r.CompanyID.Value,
		ClientID:             r.ClientID.Value,
		ScheduledAt:          sched,
		FollowupDate:         legacy,
		Status:               r.Status,
		Notes:                r.Notes,
		AssignedNutritionist: r.AssignedNutritionist,
		Requirements:         r.Requirements,
		PresentReadings:      r.PresentReadings,
		NextTarget:           r.NextTarget,
		GivenPlan:            r.GivenPlan,
		WeightKg:             r.WeightKg.Ptr(),
		BMI:                  r.BMI.Ptr(),
		BP:                   r.BP,
		Sugar:                r.Sugar,
	}, nil
}

// Create schedules a follow-up from a body naming company_id and client_id.
func (h *Handler) Create(c echo.Context) error {
	return h.create(c, false)
}

// CreateForClient schedules a follow-up for the client in the path; path ids
// override the body.
func (h *Handler) CreateForClient(c echo.Context) error {
	return h.create(c, true)
}

func (h *Handler) create(c echo.Context, fromPath bool) error {
	if err := httputil.RequireJSON(c); err != nil {
		return err
	}
	var req createRequest
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	if fromPath {
		companyID, err := httputil.ParamInt(c, "companyId")
		if err != nil {
			return err
		}
		clientID, err := httputil.ParamInt(c, "clientId")
		if err != nil {
			return err
		}
		req.CompanyID = httputil.IntOf(companyID)
		req.ClientID = httputil.IntOf(clientID)
	}
	f, err := req.toFollowup()
	if err != nil {
		return err
	}
	if err := h.svc.Create(c.Request().Context(), f); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req struct {
		Status string `json:"status"`
	}
	if err := httputil.Bind(c, &req); err != nil {
		return err
	}
	f, err := h.svc.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}
