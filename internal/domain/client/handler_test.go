package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func staffRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	ctx := auth.WithPrincipal(context.Background(), auth.Principal{ID: "u1", Role: auth.RoleNutritionist, Name: "Dr. Mehta"})
	return req.WithContext(ctx)
}

func TestCreateIntakeHandler(t *testing.T) {
	h, env, e := newTestHandler()
	rec := httptest.NewRecorder()
	body := `{"company_id":"2","name":"Asha","age":"31","first_followup_at":"2025-07-01","given_plan_file":{"name":"plan.pdf","type":"application/pdf","base64":"QUJD"}}`
	c := e.NewContext(staffRequest(http.MethodPost, body), rec)

	require.NoError(t, h.CreateIntake(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, float64(2), got["company_id"])
	assert.Equal(t, float64(1), got["client_id"])

	in := env.intakes.rows[0]
	assert.Equal(t, "Dr. Mehta", *in.CreatedBy)
	assert.Equal(t, int64(31), *in.Age)
	assert.Equal(t, "application/pdf", in.GivenPlanFile.Type)
	assert.Equal(t, int64(3), in.GivenPlanFile.Size)
}

func TestCreateIntakeHandler_RequiresJSON(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`name=x`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	err := h.CreateIntake(e.NewContext(req, httptest.NewRecorder()))
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))
}

func TestUpdateIntakeHandler_BadClientID(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(staffRequest(http.MethodPut, `{}`), httptest.NewRecorder())
	c.SetParamNames("clientId")
	c.SetParamValues("abc")
	err := h.UpdateIntake(c)
	require.Error(t, err)
	assert.Equal(t, "Bad clientId", err.Error())
}

func TestUpdateIntakeHandler_EmptyStatusIgnored(t *testing.T) {
	h, env, e := newTestHandler()
	st := "done"
	env.intakes.rows = []*Intake{{CompanyID: 1, ClientID: 4, Status: &st}}
	env.clients.store[key{1, 4}] = &Client{CompanyID: 1, ClientID: 4, Name: "D"}

	rec := httptest.NewRecorder()
	c := e.NewContext(staffRequest(http.MethodPut, `{"status":"","name":"Dev"}`), rec)
	c.SetParamNames("clientId")
	c.SetParamValues("4")
	require.NoError(t, h.UpdateIntake(c))

	assert.Equal(t, "done", *env.intakes.rows[0].Status)
	assert.Equal(t, "Dev", env.clients.store[key{1, 4}].Name)
}

func TestUpdateClientHandler_NoFields(t *testing.T) {
	h, env, e := newTestHandler()
	env.clients.store[key{1, 4}] = &Client{CompanyID: 1, ClientID: 4, Name: "D"}
	c := e.NewContext(staffRequest(http.MethodPut, `{"unknown":1}`), httptest.NewRecorder())
	c.SetParamNames("clientId")
	c.SetParamValues("4")
	err := h.UpdateClient(c)
	require.Error(t, err)
	assert.Equal(t, "No updatable fields provided", err.Error())
}

func TestDeleteClientHandler(t *testing.T) {
	h, env, e := newTestHandler()
	env.clients.store[key{1, 4}] = &Client{CompanyID: 1, ClientID: 4, Name: "D"}
	rec := httptest.NewRecorder()
	c := e.NewContext(staffRequest(http.MethodDelete, ``), rec)
	c.SetParamNames("clientId")
	c.SetParamValues("4")

	require.NoError(t, h.DeleteClient(c))
	assert.JSONEq(t, `{"ok":true,"deleted_client_id":4}`, rec.Body.String())
}

func TestProfileIntakeRequest_ToPatch(t *testing.T) {
	p, err := ProfileIntakeRequest{FirstFollowupAt: "", Status: ""}.ToPatch()
	require.NoError(t, err)
	assert.Nil(t, p.FirstFollowupAt)
	assert.Nil(t, p.Status)

	p, err = ProfileIntakeRequest{FirstFollowupAt: "2025-08-01", Status: "reached_out"}.ToPatch()
	require.NoError(t, err)
	require.NotNil(t, p.FirstFollowupAt)
	assert.Equal(t, "reached_out", *p.Status)

	_, err = ProfileIntakeRequest{FirstFollowupAt: "tomorrow"}.ToPatch()
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}
