package devserver

import (
	"context"
	"fmt"
	"net/http"
)

// HandlerFunc handles one request
type HandlerFunc func(RequestContext) error

// MiddlewareFunc wraps a handler
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// RequestContext is the engine-independent view of a request and its response
type RequestContext interface {
	Method() string
	Path() string
	// Param returns a path parameter; "*" returns the wildcard match
	// without a leading slash
	Param(key string) string
	QueryParam(key string) string
	Header(key string) string
	// Context is done when the client goes away
	Context() context.Context

	SetHeader(key, value string)
	JSON(code int, v any) error
	Blob(code int, contentType string, b []byte) error
	String(code int, s string) error
}

// WebServer is an HTTP engine the dev server can run on
type WebServer interface {
	RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc)
	Use(middleware MiddlewareFunc)

	// Start blocks serving addr until Stop is called. A graceful stop
	// returns nil.
	Start(addr string) error
	Stop(ctx context.Context) error

	// Test serves one request in process
	Test(req *http.Request) (*http.Response, error)

	Name() string
}

// NewWebServer creates the engine named by the configuration
func NewWebServer(engine string) (WebServer, error) {
	switch engine {
	case "echo":
		return NewEchoAdapter(), nil
	case "gin":
		return NewGinAdapter(), nil
	case "fiber":
		return NewFiberAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown web engine %q", engine)
	}
}

func chain(handler HandlerFunc, middlewares []MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}
