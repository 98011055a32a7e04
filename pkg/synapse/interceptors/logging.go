// Package interceptors provides stock interceptors for logging, metrics and tracing.
package interceptors

import (
	"time"

	"go.uber.org/zap"

	"github.com/toyz/synapse/pkg/synapse"
)

// Logging logs one line per handled request at info level, or warn when the handler fails
type Logging struct {
	logger *zap.Logger
}

// NewLogging creates a logging interceptor. A nil logger logs through the request's logger.
func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{logger: logger}
}

func (l *Logging) Intercept(ec *synapse.ExecutionContext, next synapse.CallHandler) (any, error) {
	start := time.Now()
	result, err := next.Handle()

	logger := l.logger
	if logger == nil {
		logger = ec.Logger()
	} else {
		logger = logger.With(zap.String("request_id", ec.RequestID()))
	}

	route := ec.Route()
	fields := []zap.Field{
		zap.String("method", route.Method),
		zap.String("route", route.Path),
		zap.String("handler", route.Controller.Name()+"."+route.MethodName),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		logger.Warn("handler failed", append(fields, zap.Error(err))...)
		return result, err
	}
	logger.Info("handled request", fields...)
	return result, nil
}
