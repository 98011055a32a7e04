package adapters

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/toyz/synapse/pkg/synapse"
)

// ChiAdapter mounts a server on a chi router
type ChiAdapter struct {
	router chi.Router
	server *http.Server
}

// NewChiAdapter creates a chi adapter around an existing router
func NewChiAdapter(r chi.Router) *ChiAdapter {
	return &ChiAdapter{router: r}
}

// NewDefaultChiAdapter creates a chi adapter with recovery, real-IP and CORS middleware
func NewDefaultChiAdapter(allowedOrigins ...string) *ChiAdapter {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", synapse.RequestIDHeader},
			ExposedHeaders: []string{synapse.RequestIDHeader},
			MaxAge:         300,
		}))
	}
	return &ChiAdapter{router: r}
}

// Mount registers every route natively and forwards everything else to the server
func (ca *ChiAdapter) Mount(s *synapse.Server) error {
	native := Handler(s, chiParams)
	for _, r := range nativeRoutes(s, BraceStyle) {
		register(s.Logger(), ca.Name(), r, func() {
			ca.router.Method(r.method, r.path, native)
		})
	}

	fallback := Handler(s, nil)
	ca.router.NotFound(fallback.ServeHTTP)
	ca.router.MethodNotAllowed(fallback.ServeHTTP)
	return nil
}

func chiParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return nil
	}
	return paramsFrom(rctx.URLParams.Keys, rctx.URLParams.Values)
}

// Start listens on addr until Stop is called
func (ca *ChiAdapter) Start(addr string) error {
	ca.server = &http.Server{Addr: addr, Handler: ca.router}
	if err := ca.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (ca *ChiAdapter) Stop(ctx context.Context) error {
	if ca.server == nil {
		return nil
	}
	return ca.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ca *ChiAdapter) Name() string {
	return "Chi"
}

// Router returns the underlying chi router
func (ca *ChiAdapter) Router() chi.Router {
	return ca.router
}
