package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellness/wellness/internal/platform/apperr"
)

func TestRequireJSON(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderContentType, "application/json; charset=utf-8")
	assert.NoError(t, RequireJSON(e.NewContext(req, httptest.NewRecorder())))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(echo.HeaderContentType, "text/plain")
	err := RequireJSON(e.NewContext(req, httptest.NewRecorder()))
	assert.True(t, apperr.Is(err, apperr.KindUnsupportedMedia))
}

func TestParamInt(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("companyId", "clientId")
	c.SetParamValues("3", "abc")

	n, err := ParamInt(c, "companyId")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = ParamInt(c, "clientId")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestFlexInt(t *testing.T) {
	var body struct {
		A FlexInt `json:"a"`
		B FlexInt `json:"b"`
		C FlexInt `json:"c"`
		D FlexInt `json:"d"`
		E FlexInt `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":7,"b":"42","c":"","d":null}`), &body))

	assert.Equal(t, IntOf(7), body.A)
	assert.Equal(t, IntOf(42), body.B)
	assert.True(t, body.C.Present)
	assert.False(t, body.C.Valid)
	assert.True(t, body.D.Present)
	assert.False(t, body.D.Valid)
	assert.False(t, body.E.Present)
	assert.Nil(t, body.E.Ptr())
}

func TestFlexInt_RejectsFraction(t *testing.T) {
	var f FlexInt
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &f))
	assert.False(t, f.Valid)
}

func TestFlexFloat(t *testing.T) {
	var f FlexFloat
	require.NoError(t, json.Unmarshal([]byte(`"70.5"`), &f))
	assert.Equal(t, FloatOf(70.5), f)

	out, err := json.Marshal(FlexFloat{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:30:00Z", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2025-03-01T10:30:00.250+05:30", time.Date(2025, 3, 1, 5, 0, 0, 250e6, time.UTC)},
		{"2025-03-01T10:30", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		require.NoError(t, err, tt.in)
		require.NotNil(t, got)
		assert.True(t, tt.want.Equal(*got), "%s: got %v", tt.in, got)
	}

	got, err := ParseTime("  ")
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseTime("next tuesday")
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
}

func TestParseDayAndEndOfDay(t *testing.T) {
	d, err := ParseDay("2025-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 999e6, time.UTC), EndOfDay(d))

	_, err = ParseDay("31/01/2025")
	assert.Error(t, err)
}
