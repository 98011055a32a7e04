package adapters

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/gofiber/fiber/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/toyz/synapse/pkg/synapse"
)

type widgetController struct{}

type widget struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func (c *widgetController) FindOne(id string) widget { return widget{ID: id, Name: "w" + id} }

func (c *widgetController) Create(w widget) (*synapse.Response, error) {
	return synapse.Created(w).WithHeader("Location", "/widgets/"+w.ID), nil
}

func (c *widgetController) Remove() *synapse.Response { return synapse.NoContent() }

func newWidgetServer(t *testing.T) *synapse.Server {
	t.Helper()
	ctrl := synapse.Controller[*widgetController]("/widgets")
	ctrl.Get("/:id", "FindOne", synapse.Param("id"))
	ctrl.Post("/", "Create", synapse.Body())
	ctrl.Delete("/:id", "Remove")

	s, err := synapse.New(synapse.NewModule("widgets", synapse.Controllers(ctrl)), synapse.WithGlobalPrefix("/api"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	return s
}

// serve runs one request through a mounted host
type serve func(t *testing.T, req *http.Request) *http.Response

func hosts(t *testing.T) map[string]serve {
	gin.SetMode(gin.TestMode)

	return map[string]serve{
		"echo": func(t *testing.T, req *http.Request) *http.Response {
			a := NewEchoAdapter(echo.New())
			require.NoError(t, a.Mount(newWidgetServer(t)))
			rec := httptest.NewRecorder()
			a.GetEngine().ServeHTTP(rec, req)
			return rec.Result()
		},
		"gin": func(t *testing.T, req *http.Request) *http.Response {
			a := NewGinAdapter(gin.New())
			require.NoError(t, a.Mount(newWidgetServer(t)))
			rec := httptest.NewRecorder()
			a.GetEngine().ServeHTTP(rec, req)
			return rec.Result()
		},
		"fiber": func(t *testing.T, req *http.Request) *http.Response {
			a := NewFiberAdapter(fiber.New())
			require.NoError(t, a.Mount(newWidgetServer(t)))
			resp, err := a.GetApp().Test(req)
			require.NoError(t, err)
			return resp
		},
		"chi": func(t *testing.T, req *http.Request) *http.Response {
			a := NewChiAdapter(chi.NewRouter())
			require.NoError(t, a.Mount(newWidgetServer(t)))
			rec := httptest.NewRecorder()
			a.Router().ServeHTTP(rec, req)
			return rec.Result()
		},
		"net/http": func(t *testing.T, req *http.Request) *http.Response {
			a := NewHTTPAdapter()
			require.NoError(t, a.Mount(newWidgetServer(t)))
			rec := httptest.NewRecorder()
			a.Mux().ServeHTTP(rec, req)
			return rec.Result()
		},
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(string(b))
}

func TestAdapters_Dispatch(t *testing.T) {
	for name, do := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			resp := do(t, httptest.NewRequest(http.MethodGet, "/api/widgets/42", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
			assert.NotEmpty(t, resp.Header.Get(synapse.RequestIDHeader))
			assert.JSONEq(t, `{"id":"42","name":"w42"}`, readBody(t, resp))
		})
	}
}

func TestAdapters_CreateWithHeaders(t *testing.T) {
	for name, do := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(`{"id":"7","name":"seven"}`))
			req.Header.Set("Content-Type", "application/json")

			resp := do(t, req)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "/widgets/7", resp.Header.Get("Location"))
			assert.JSONEq(t, `{"id":"7","name":"seven"}`, readBody(t, resp))
		})
	}
}

func TestAdapters_NotFound(t *testing.T) {
	for name, do := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			resp := do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			assert.JSONEq(t, `{"statusCode":404,"message":"Route not found: GET /nowhere"}`, readBody(t, resp))
		})
	}
}

func TestAdapters_NoContent(t *testing.T) {
	for name, do := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			resp := do(t, httptest.NewRequest(http.MethodDelete, "/api/widgets/1", nil))
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Empty(t, readBody(t, resp))
		})
	}
}

func TestAdapters_Msgpack(t *testing.T) {
	for name, do := range hosts(t) {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/widgets/3", nil)
			req.Header.Set("Accept", synapse.MIMEApplicationMsgpack)

			resp := do(t, req)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, synapse.MIMEApplicationMsgpack, resp.Header.Get("Content-Type"))

			defer resp.Body.Close()
			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var w widget
			require.NoError(t, msgpack.Unmarshal(raw, &w))
			assert.Equal(t, widget{ID: "3", Name: "w3"}, w)
		})
	}
}

func TestHostPath(t *testing.T) {
	tests := []struct {
		pattern string
		style   PathStyle
		want    string
	}{
		{"/cats/:id", ColonStyle, "/cats/:id"},
		{"/cats/:id", BraceStyle, "/cats/{id}"},
		{"/cats/:id/toys/:toy", BraceStyle, "/cats/{id}/toys/{toy}"},
		{"cats/", BraceStyle, "/cats"},
		{"/", BraceStyle, "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HostPath(tt.pattern, tt.style))
	}
}

func TestFromHostPath(t *testing.T) {
	assert.Equal(t, "/cats/:id", FromHostPath("/cats/{id}"))
	assert.Equal(t, "/cats/:id/toys/:toy", FromHostPath("/cats/{id:[0-9]+}/toys/{toy}"))
	assert.Equal(t, "/cats", FromHostPath("/cats"))
}

func TestNativeRoutes_CollapseSameShape(t *testing.T) {
	ctrl := synapse.Controller[*widgetController]("/w")
	ctrl.Get("/:id", "FindOne", synapse.Param("id"))
	ctrl.Get("/:slug", "FindOne", synapse.Param("slug"))
	ctrl.Post("/:id", "Create", synapse.Body())

	s, err := synapse.New(synapse.NewModule("w", synapse.Controllers(ctrl)))
	require.NoError(t, err)

	routes := nativeRoutes(s, BraceStyle)
	require.Len(t, routes, 2)
	assert.Equal(t, "/w/{id}", routes[0].path)
	assert.Equal(t, http.MethodPost, routes[1].method)
}
