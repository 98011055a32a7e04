package adapters

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/toyz/synapse/pkg/synapse"
)

// GinAdapter mounts a server on a Gin engine
type GinAdapter struct {
	engine *gin.Engine
	server *http.Server
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates a new Gin adapter with the default Gin instance
func NewDefaultGinAdapter() *GinAdapter {
	return &GinAdapter{engine: gin.Default()}
}

// Mount registers every route natively and forwards everything else to the server
func (ga *GinAdapter) Mount(s *synapse.Server) error {
	handler := ga.convertHandler(s)
	for _, r := range nativeRoutes(s, ColonStyle) {
		register(s.Logger(), ga.Name(), r, func() {
			ga.engine.Handle(r.method, r.path, handler)
		})
	}
	ga.engine.NoRoute(handler)
	ga.engine.NoMethod(handler)
	return nil
}

func (ga *GinAdapter) convertHandler(s *synapse.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := synapse.FromHTTP(c.Request,
			synapse.WithRaw(c),
			synapse.WithStaticParams(ginParams(c)))

		resp := s.Handle(c.Request.Context(), req)
		writeGin(c, resp, req.Accept())
	}
}

func ginParams(c *gin.Context) map[string]string {
	if len(c.Params) == 0 {
		return nil
	}
	out := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		out[p.Key] = p.Value
	}
	return out
}

func writeGin(c *gin.Context, resp *synapse.Response, accept string) {
	contentType, data, err := resp.Encode(accept)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	for key, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if data == nil {
		c.Status(status)
		return
	}
	c.Data(status, contentType, data)
}

// Start starts the server
func (ga *GinAdapter) Start(addr string) error {
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	if err := ga.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the server
func (ga *GinAdapter) Stop(ctx context.Context) error {
	if ga.server == nil {
		return nil
	}
	return ga.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}
