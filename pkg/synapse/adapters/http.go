package adapters

import (
	"context"
	"errors"
	"net/http"

	"github.com/toyz/synapse/pkg/synapse"
)

// ParamsFromRequest extracts host path params from a net/http request
type ParamsFromRequest func(r *http.Request) map[string]string

// Handler serves s over net/http. params, when non-nil, supplies the params a
// host router extracted.
func Handler(s *synapse.Server, params ParamsFromRequest) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var opts []synapse.RequestOption
		if params != nil {
			opts = append(opts, synapse.WithStaticParams(params(r)))
		}
		req := synapse.FromHTTP(r, opts...)

		resp := s.Handle(r.Context(), req)
		if err := resp.Write(w, req.Accept()); err != nil {
			s.Logger().Sugar().Errorw("failed to write response", "error", err, "path", r.URL.Path)
		}
	})
}

// HTTPAdapter serves on a plain http.ServeMux. The mux forwards every path, so
// the server's own matcher does all the routing.
type HTTPAdapter struct {
	mux    *http.ServeMux
	server *http.Server
}

// NewHTTPAdapter creates an adapter around a fresh ServeMux
func NewHTTPAdapter() *HTTPAdapter {
	return &HTTPAdapter{mux: http.NewServeMux()}
}

// Mount installs the server as the mux's catch-all
func (ha *HTTPAdapter) Mount(s *synapse.Server) error {
	ha.mux.Handle("/", Handler(s, nil))
	return nil
}

// Start listens on addr until Stop is called
func (ha *HTTPAdapter) Start(addr string) error {
	ha.server = &http.Server{Addr: addr, Handler: ha.mux}
	if err := ha.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully
func (ha *HTTPAdapter) Stop(ctx context.Context) error {
	if ha.server == nil {
		return nil
	}
	return ha.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ha *HTTPAdapter) Name() string {
	return "net/http"
}

// Mux returns the underlying ServeMux
func (ha *HTTPAdapter) Mux() *http.ServeMux {
	return ha.mux
}
