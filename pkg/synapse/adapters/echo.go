package adapters

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toyz/synapse/pkg/synapse"
)

// EchoAdapter mounts a server on Echo v4
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates a new Echo adapter with recovery middleware
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	return &EchoAdapter{engine: e}
}

// Mount registers every route natively and forwards everything else to the server
func (ea *EchoAdapter) Mount(s *synapse.Server) error {
	handler := ea.convertHandler(s)
	for _, r := range nativeRoutes(s, ColonStyle) {
		register(s.Logger(), ea.Name(), r, func() {
			ea.engine.Add(r.method, r.path, handler)
		})
	}
	ea.engine.Any("/*", handler)
	return nil
}

// convertHandler converts the server into an echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(s *synapse.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := synapse.FromHTTP(c.Request(),
			synapse.WithRaw(c),
			synapse.WithStaticParams(echoParams(c)))

		resp := s.Handle(c.Request().Context(), req)
		return writeEcho(c, resp, req.Accept())
	}
}

func echoParams(c echo.Context) map[string]string {
	params := paramsFrom(c.ParamNames(), c.ParamValues())
	delete(params, "*")
	return params
}

func writeEcho(c echo.Context, resp *synapse.Response, accept string) error {
	contentType, data, err := resp.Encode(accept)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}

	for key, values := range resp.Header {
		for _, v := range values {
			c.Response().Header().Add(key, v)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if data == nil {
		return c.NoContent(status)
	}
	return c.Blob(status, contentType, data)
}

// Start starts the server
func (ea *EchoAdapter) Start(addr string) error {
	if err := ea.engine.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}
