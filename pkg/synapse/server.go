package synapse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrServerInitialized is returned when global enhancers change after Init
var ErrServerInitialized = errors.New("server already initialized")

var (
	errorType            = reflect.TypeOf((*error)(nil)).Elem()
	contextType          = reflect.TypeOf((*context.Context)(nil)).Elem()
	executionContextType = reflect.TypeOf((*ExecutionContext)(nil))
)

// Server dispatches requests to the controllers of a module graph
type Server struct {
	mu        sync.RWMutex
	root      *Module
	container *Container
	logger    *zap.Logger
	prefix    string

	globalFilters      []any
	globalInterceptors []any
	globalPipes        []any

	initialized bool
	initErr     error
	table       *RouteTable
	bindings    []*routeBinding
}

// Option configures a Server
type Option func(*Server)

// WithGlobalPrefix strips prefix from every request path before matching
func WithGlobalPrefix(prefix string) Option {
	return func(s *Server) {
		s.prefix = prefix
	}
}

// WithGlobalFilters adds exception filters that run before controller filters
func WithGlobalFilters(filters ...any) Option {
	return func(s *Server) {
		s.globalFilters = append(s.globalFilters, filters...)
	}
}

// WithGlobalInterceptors adds interceptors that wrap every handler, outermost
func WithGlobalInterceptors(interceptors ...any) Option {
	return func(s *Server) {
		s.globalInterceptors = append(s.globalInterceptors, interceptors...)
	}
}

// WithGlobalPipes adds pipes applied to every argument first
func WithGlobalPipes(pipes ...any) Option {
	return func(s *Server) {
		s.globalPipes = append(s.globalPipes, pipes...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithContainer uses an existing container instead of a fresh one
func WithContainer(c *Container) Option {
	return func(s *Server) {
		s.container = c
	}
}

// New creates a server for the module graph rooted at root
func New(root *Module, opts ...Option) (*Server, error) {
	if root == nil {
		return nil, fmt.Errorf("synapse: nil root module")
	}

	s := &Server{root: root, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.container == nil {
		s.container = NewContainer(WithContainerLogger(s.logger))
	}
	return s, nil
}

// SetGlobalPrefix changes the global prefix; it may be called at any time
func (s *Server) SetGlobalPrefix(prefix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefix = prefix
}

// GlobalPrefix returns the global prefix
func (s *Server) GlobalPrefix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefix
}

// UseGlobalFilters adds global exception filters before Init
func (s *Server) UseGlobalFilters(filters ...any) error {
	return s.useGlobal(&s.globalFilters, filters)
}

// UseGlobalInterceptors adds global interceptors before Init
func (s *Server) UseGlobalInterceptors(interceptors ...any) error {
	return s.useGlobal(&s.globalInterceptors, interceptors)
}

// UseGlobalPipes adds global pipes before Init
func (s *Server) UseGlobalPipes(pipes ...any) error {
	return s.useGlobal(&s.globalPipes, pipes)
}

func (s *Server) useGlobal(list *[]any, items []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrServerInitialized
	}
	*list = append(*list, items...)
	return nil
}

// Container returns the server's container
func (s *Server) Container() *Container {
	return s.container
}

// Logger returns the server's logger
func (s *Server) Logger() *zap.Logger {
	return s.logger
}

// Routes returns the route table; before Init it is computed from the module graph
func (s *Server) Routes() []RouteDescriptor {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table != nil {
		return table.Routes()
	}
	return NewRouteTable(ResolveRoutes(s.root, s.logger)).Routes()
}

// Init loads the root module, builds the route table and binds every route to
// its controller method, interceptors, pipes and filters. It runs once; later
// calls return the first result.
func (s *Server) Init(ctx context.Context) error {
	s.mu.RLock()
	done, err := s.initialized, s.initErr
	s.mu.RUnlock()
	if done {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.initErr
	}
	s.initialized = true
	s.initErr = s.init(ctx)
	return s.initErr
}

func (s *Server) init(ctx context.Context) error {
	if err := s.container.Load(s.root); err != nil {
		return fmt.Errorf("load root module: %w", err)
	}

	table := NewRouteTable(ResolveRoutes(s.root, s.logger))

	globalFilters, err := resolveAll[ExceptionFilter](ctx, s.container, s.globalFilters, "exception filter")
	if err != nil {
		return err
	}
	globalInterceptors, err := resolveAll[Interceptor](ctx, s.container, s.globalInterceptors, "interceptor")
	if err != nil {
		return err
	}
	globalPipes, err := resolveAll[Pipe](ctx, s.container, s.globalPipes, "pipe")
	if err != nil {
		return err
	}

	controllers := make(map[*ControllerDef]*controllerBinding)
	routes := table.Routes()
	bindings := make([]*routeBinding, len(routes))

	for i, route := range routes {
		cb, ok := controllers[route.Controller]
		if !ok {
			cb, err = s.bindController(ctx, route.Controller, globalFilters, globalInterceptors, globalPipes)
			if err != nil {
				return err
			}
			controllers[route.Controller] = cb
		}

		rb, err := s.bindRoute(ctx, route, cb)
		if err != nil {
			return err
		}
		bindings[i] = rb

		s.logger.Debug("mapped route",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
			zap.String("controller", route.Controller.Name()),
			zap.String("handler", route.MethodName))
	}

	s.table = table
	s.bindings = bindings
	s.logger.Info("server initialized", zap.Int("routes", table.Len()))
	return nil
}

// controllerBinding caches the enhancers shared by a controller's routes
type controllerBinding struct {
	filters      []ExceptionFilter
	interceptors []Interceptor
	pipes        []Pipe
}

func (s *Server) bindController(ctx context.Context, ctrl *ControllerDef, filters []ExceptionFilter, interceptors []Interceptor, pipes []Pipe) (*controllerBinding, error) {
	ctrlFilters, err := resolveAll[ExceptionFilter](ctx, s.container, ctrl.filters, "exception filter")
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", ctrl, err)
	}
	ctrlInterceptors, err := resolveAll[Interceptor](ctx, s.container, ctrl.interceptors, "interceptor")
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", ctrl, err)
	}
	ctrlPipes, err := resolveAll[Pipe](ctx, s.container, ctrl.pipes, "pipe")
	if err != nil {
		return nil, fmt.Errorf("controller %s: %w", ctrl, err)
	}

	return &controllerBinding{
		filters:      concat(filters, ctrlFilters),
		interceptors: concat(interceptors, ctrlInterceptors),
		pipes:        concat(pipes, ctrlPipes),
	}, nil
}

// routeBinding is everything needed to dispatch one route, composed once at Init
type routeBinding struct {
	route     RouteDescriptor
	handler   *HandlerDef
	hasMethod bool
	numIn     int
	metatypes []reflect.Type

	filters      []ExceptionFilter
	interceptors []Interceptor
	pipes        []Pipe
	paramPipes   map[int][]Pipe
}

func (rb *routeBinding) argMeta(m ParamMetadata) ArgumentMetadata {
	meta := ArgumentMetadata{Type: m.Type, Data: m.Data}
	if m.Index >= 0 && m.Index < len(rb.metatypes) {
		meta.Metatype = rb.metatypes[m.Index]
	}
	return meta
}

func (s *Server) bindRoute(ctx context.Context, route RouteDescriptor, cb *controllerBinding) (*routeBinding, error) {
	h := route.Handler
	rb := &routeBinding{route: route, handler: h, paramPipes: make(map[int][]Pipe)}
	name := route.Controller.Name() + "." + route.MethodName

	if method, ok := route.Controller.Type().MethodByName(route.MethodName); ok {
		fnType := method.Type
		if err := checkResults(fnType); err != nil {
			return nil, fmt.Errorf("handler %s: %w", name, err)
		}
		rb.hasMethod = true
		rb.numIn = fnType.NumIn() - 1 // receiver
		for i := 1; i < fnType.NumIn(); i++ {
			rb.metatypes = append(rb.metatypes, fnType.In(i))
		}
	} else {
		s.logger.Warn("route handler method not found on controller",
			zap.String("handler", name), zap.String("path", route.Path))
	}

	handlerFilters, err := resolveAll[ExceptionFilter](ctx, s.container, h.filters, "exception filter")
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", name, err)
	}
	handlerInterceptors, err := resolveAll[Interceptor](ctx, s.container, h.interceptors, "interceptor")
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", name, err)
	}
	handlerPipes, err := resolveAll[Pipe](ctx, s.container, h.pipes, "pipe")
	if err != nil {
		return nil, fmt.Errorf("handler %s: %w", name, err)
	}
	for _, p := range h.params {
		pipes, err := resolveAll[Pipe](ctx, s.container, p.Pipes, "pipe")
		if err != nil {
			return nil, fmt.Errorf("handler %s: %w", name, err)
		}
		rb.paramPipes[p.Index] = pipes
	}

	rb.filters = concat(cb.filters, handlerFilters)
	rb.interceptors = concat(cb.interceptors, handlerInterceptors)
	rb.pipes = concat(cb.pipes, handlerPipes)
	return rb, nil
}

func checkResults(fnType reflect.Type) error {
	switch fnType.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if fnType.Out(1) != errorType {
			return fmt.Errorf("second result must be error, got %s", fnType.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("handlers return at most (value, error), got %d results", fnType.NumOut())
	}
}

// Handle dispatches one request:
// Parse, Match, Resolve-Controller, Resolve-Parameters, Intercept+Invoke, Serialize.
// Every failure becomes a response; Handle never returns nil.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if err := s.Init(ctx); err != nil {
		s.logger.Error("server failed to initialize", zap.Error(err))
		return DefaultErrorResponse(NewResolutionError("Internal server error", err))
	}

	s.mu.RLock()
	prefix, table, bindings := s.prefix, s.table, s.bindings
	s.mu.RUnlock()

	// Parse
	method := strings.ToUpper(req.Method)
	path, ok := StripPrefix(req.Path(), prefix)
	if !ok {
		return s.fail(nil, NewRouteNotFound(method, NormalizePath(req.Path())))
	}

	// Match
	match, err := table.Lookup(method, path)
	if err != nil {
		return s.fail(nil, err)
	}
	rb := bindings[match.index]

	requestID := req.HeaderValue(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	// Resolve-Controller
	ctx = WithRequestScope(ctx)
	ec := newExecutionContext(ctx, req, rb.route, requestID, s.logger)
	if err := BindRequestValue(ctx, RequestToken, req); err != nil {
		return s.fail(ec, NewResolutionError("Internal server error", err))
	}
	if err := BindRequestValue(ctx, ExecutionContextToken, ec); err != nil {
		return s.fail(ec, NewResolutionError("Internal server error", err))
	}

	fn, err := s.resolveHandler(ctx, ec, rb)
	if err != nil {
		return s.fail(ec, err)
	}

	hostParams, err := req.Params(ctx)
	if err != nil {
		return s.fail(ec, NewResolutionError("Internal server error", err))
	}
	ec.params = mergeParams(hostParams, match.Params)

	// Resolve-Parameters
	args, err := s.resolveArguments(ctx, ec, rb)
	if err != nil {
		return s.fail(ec, err)
	}
	if len(args) > rb.numIn {
		return s.fail(ec, NewResolutionError(
			fmt.Sprintf("Handler %s.%s takes %d arguments but %d were declared",
				rb.route.Controller.Name(), rb.route.MethodName, rb.numIn, len(args)), nil))
	}

	in, err := adaptArgs(injectContext(args, rb.metatypes, ec), fn.Type(), rb.route.MethodName)
	if err != nil {
		return s.fail(ec, err)
	}

	// Intercept+Invoke
	result, err := ExecuteChain(ec, rb.interceptors, func() (any, error) {
		return invoke(fn, refreshContext(in, args, rb.metatypes, ec))
	})
	if err != nil {
		resp := handleException(err, ec, rb.filters)
		s.logResponse(ec, resp, err)
		return withRequestID(resp, requestID)
	}

	// Serialize
	return withRequestID(serialize(result), requestID)
}

func (s *Server) resolveHandler(ctx context.Context, ec *ExecutionContext, rb *routeBinding) (reflect.Value, error) {
	ctrl := rb.route.Controller
	instance, err := s.container.GetAsync(ctx, ctrl.Type())
	if err != nil {
		return reflect.Value{}, NewResolutionError(fmt.Sprintf("Controller %s could not be resolved", ctrl.Name()), err)
	}
	if instance == nil {
		return reflect.Value{}, NewResolutionError(fmt.Sprintf("Controller %s could not be resolved", ctrl.Name()), nil)
	}
	ec.instance = instance

	fn := reflect.ValueOf(instance).MethodByName(rb.route.MethodName)
	if !fn.IsValid() || !rb.hasMethod {
		return reflect.Value{}, NewResolutionError(
			fmt.Sprintf("Handler %s.%s not found", ctrl.Name(), rb.route.MethodName), nil)
	}
	return fn, nil
}

// mergeParams applies the matcher's params over the host's, so the matcher wins
func mergeParams(host, matched map[string]string) map[string]string {
	if host == nil && matched == nil {
		return nil
	}
	out := make(map[string]string, len(host)+len(matched))
	for k, v := range host {
		out[k] = v
	}
	for k, v := range matched {
		out[k] = v
	}
	return out
}

// injectContext fills undeclared context.Context and *ExecutionContext parameters
func injectContext(args []any, metatypes []reflect.Type, ec *ExecutionContext) []any {
	out := make([]any, len(metatypes))
	copy(out, args)
	for i, t := range metatypes {
		if out[i] != nil {
			continue
		}
		switch t {
		case contextType:
			out[i] = ec.Context()
		case executionContextType:
			out[i] = ec
		}
	}
	return out
}

// refreshContext re-reads injected context.Context slots, since interceptors may replace the context
func refreshContext(in []reflect.Value, args []any, metatypes []reflect.Type, ec *ExecutionContext) []reflect.Value {
	for i, t := range metatypes {
		if i >= len(in) || t != contextType || (i < len(args) && args[i] != nil) {
			continue
		}
		if ctx := ec.Context(); ctx != nil {
			in[i] = reflect.ValueOf(&ctx).Elem()
		}
	}
	return in
}

func invoke(fn reflect.Value, in []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("handler panic: %v", r)
		}
	}()

	var out []reflect.Value
	if fn.Type().IsVariadic() {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if fn.Type().Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// serialize passes responses through and wraps anything else in a 200
func serialize(result any) *Response {
	switch r := result.(type) {
	case *Response:
		if r != nil {
			return r
		}
		return OK(nil)
	case Response:
		return &r
	default:
		return OK(result)
	}
}

func withRequestID(resp *Response, requestID string) *Response {
	if requestID != "" && (resp.Header == nil || resp.Header.Get(RequestIDHeader) == "") {
		resp.WithHeader(RequestIDHeader, requestID)
	}
	return resp
}

func (s *Server) fail(ec *ExecutionContext, err error) *Response {
	resp := DefaultErrorResponse(err)
	s.logResponse(ec, resp, err)
	if ec != nil {
		return withRequestID(resp, ec.RequestID())
	}
	return resp
}

func (s *Server) logResponse(ec *ExecutionContext, resp *Response, err error) {
	logger := s.logger
	if ec != nil {
		logger = ec.Logger()
	}
	fields := []zap.Field{zap.Int("status", resp.StatusCode), zap.String("kind", KindOf(err).String()), zap.Error(err)}
	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
		return
	}
	logger.Debug("request rejected", fields...)
}

// resolveAll turns enhancer items into instances. Items are instances of T or
// tokens; an unbound struct pointer type is bound as a class on first use.
func resolveAll[T any](ctx context.Context, c *Container, items []any, what string) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		instance := item
		switch tok := item.(type) {
		case string, *Symbol:
			v, err := c.GetAsync(ctx, tok)
			if err != nil {
				return nil, fmt.Errorf("resolve %s %v: %w", what, tok, err)
			}
			instance = v
		case reflect.Type:
			if !c.IsBound(tok) {
				if err := c.Bind(Provider{Kind: ProviderClass, Token: tok, Type: tok}); err != nil {
					return nil, fmt.Errorf("bind %s %s: %w", what, tok, err)
				}
			}
			v, err := c.GetAsync(ctx, tok)
			if err != nil {
				return nil, fmt.Errorf("resolve %s %s: %w", what, tok, err)
			}
			instance = v
		}

		typed, ok := instance.(T)
		if !ok {
			return nil, fmt.Errorf("%T is not a valid %s", instance, what)
		}
		out = append(out, typed)
	}
	return out, nil
}

func concat[T any](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
