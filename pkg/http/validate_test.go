package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type windowQuery struct {
	Hours int    `query:"hours" default:"12" validate:"gte=1,lte=72"`
	Kind  string `query:"kind" default:"daily" validate:"oneof=daily weekly"`
}

func bindQuery(t *testing.T, query string) (*windowQuery, []ValidationError) {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+query, nil), httptest.NewRecorder())
	req := &windowQuery{}
	verr := ReadAndValidateRequest(c, req)
	if verr == nil {
		return req, nil
	}
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	return req, errs
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	req, errs := bindQuery(t, "")
	require.Empty(t, errs)
	assert.Equal(t, 12, req.Hours)
	assert.Equal(t, "daily", req.Kind)

	req, errs = bindQuery(t, "hours=3&kind=weekly")
	require.Empty(t, errs)
	assert.Equal(t, 3, req.Hours)
	assert.Equal(t, "weekly", req.Kind)
}

func TestReadAndValidateRequestReportsQueryNames(t *testing.T) {
	_, errs := bindQuery(t, "hours=100&kind=monthly")
	require.Len(t, errs, 2)

	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "hours", errs[0].Field)
	assert.Equal(t, "hours must be less than or equal to 72", errs[0].Message)
	assert.Equal(t, "72", errs[0].Params["max"])

	assert.Equal(t, "ERR_ONEOF", errs[1].Code)
	assert.Equal(t, "kind must be one of: daily, weekly", errs[1].Message)
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	_, errs := bindQuery(t, "hours=lots")
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
