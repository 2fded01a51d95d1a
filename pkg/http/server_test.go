package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error {
		return SuccessResponse(c, "pong")
	})
}

func TestServerCORS(t *testing.T) {
	for name, tc := range map[string]struct {
		opts   []ServerOption
		header string
	}{
		"default on": {nil, "*"},
		"disabled":   {[]ServerOption{WithCORS(false)}, ""},
	} {
		t.Run(name, func(t *testing.T) {
			srv := NewServer(pingHandler{}, tc.opts...)
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(echo.HeaderOrigin, "https://dash.example")
			rec := httptest.NewRecorder()
			srv.Echo().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.header, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
		})
	}
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	for name, tc := range map[string]struct {
		err  error
		code int
	}{
		"bad request": {BadRequestErrorf("invalid symbol %q", "--"), http.StatusBadRequest},
		"internal":    {InternalError("load failed"), http.StatusInternalServerError},
		"plain error": {assert.AnError, http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			_ = AppErrorResponse(c, tc.err)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
