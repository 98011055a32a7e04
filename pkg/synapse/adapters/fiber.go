package adapters

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/toyz/synapse/pkg/synapse"
)

// FiberAdapter mounts a server on a Fiber app
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates a new Fiber adapter around app
func NewFiberAdapter(app *fiber.App) *FiberAdapter {
	return &FiberAdapter{app: app}
}

// NewDefaultFiberAdapter creates a new Fiber adapter with recovery middleware
func NewDefaultFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	return &FiberAdapter{app: app}
}

// Mount registers every route natively and forwards everything else to the server.
// The fallback is registered last, so Fiber only reaches it when no route matched.
func (fa *FiberAdapter) Mount(s *synapse.Server) error {
	handler := fa.convertHandler(s)
	for _, r := range nativeRoutes(s, ColonStyle) {
		register(s.Logger(), fa.Name(), r, func() {
			fa.app.Add(r.method, r.path, handler)
		})
	}
	fa.app.Use(handler)
	return nil
}

func (fa *FiberAdapter) convertHandler(s *synapse.Server) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := fiberRequest(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Malformed request")
		}

		resp := s.Handle(c.UserContext(), req)
		return writeFiber(c, resp, req.Accept())
	}
}

// fiberRequest copies what it needs out of the fasthttp buffers, which are reused after the handler returns
func fiberRequest(c *fiber.Ctx) (*synapse.Request, error) {
	header := make(http.Header)
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	params := make(map[string]string)
	for k, v := range c.AllParams() {
		if k == "*" || k == "*1" {
			continue
		}
		params[utils.CopyString(k)] = utils.CopyString(v)
	}

	return synapse.NewRequest(
		utils.CopyString(c.Method()),
		utils.CopyString(c.OriginalURL()),
		synapse.WithHeader(header),
		synapse.WithBody(append([]byte(nil), c.Body()...)),
		synapse.WithStaticParams(params),
		synapse.WithRaw(c),
	)
}

func writeFiber(c *fiber.Ctx, resp *synapse.Response, accept string) error {
	contentType, data, err := resp.Encode(accept)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Internal server error")
	}

	for key, values := range resp.Header {
		for _, v := range values {
			c.Append(key, v)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	c.Status(status)
	if data == nil {
		return nil
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// Start starts the server
func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

// Stop stops the server
func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

// Name returns the adapter name
func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

// GetApp returns the underlying Fiber app
func (fa *FiberAdapter) GetApp() *fiber.App {
	return fa.app
}
