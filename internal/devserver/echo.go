package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
)

// EchoAdapter runs the dev server on Echo v4
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter creates an adapter over a fresh Echo instance
func NewEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return &EchoAdapter{engine: e}
}

// RegisterRoute registers a route with the Echo server
func (ea *EchoAdapter) RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	echoPath := path.format(colonParam, "*")
	ea.engine.Add(method, echoPath, ea.convertHandler(chain(handler, middlewares)))
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware MiddlewareFunc) {
	ea.engine.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return middleware(func(RequestContext) error { return next(c) })(&echoRequestContext{context: c})
		}
	})
}

func (ea *EchoAdapter) Start(addr string) error {
	if err := ea.engine.Start(addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

func (ea *EchoAdapter) Test(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	ea.engine.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func (ea *EchoAdapter) Name() string {
	return "Echo"
}

func (ea *EchoAdapter) convertHandler(handler HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(&echoRequestContext{context: c})
	}
}

type echoRequestContext struct {
	context echo.Context
}

func (c *echoRequestContext) Method() string { return c.context.Request().Method }
func (c *echoRequestContext) Path() string   { return c.context.Request().URL.Path }

func (c *echoRequestContext) Param(key string) string {
	if key == "*" {
		return strings.TrimPrefix(c.context.Param("*"), "/")
	}
	return c.context.Param(key)
}

func (c *echoRequestContext) Context() context.Context {
	return c.context.Request().Context()
}

func (c *echoRequestContext) QueryParam(key string) string {
	return c.context.QueryParam(key)
}

func (c *echoRequestContext) Header(key string) string {
	return c.context.Request().Header.Get(key)
}

func (c *echoRequestContext) SetHeader(key, value string) {
	c.context.Response().Header().Set(key, value)
}

func (c *echoRequestContext) JSON(code int, v any) error {
	return c.context.JSON(code, v)
}

func (c *echoRequestContext) Blob(code int, contentType string, b []byte) error {
	return c.context.Blob(code, contentType, b)
}

func (c *echoRequestContext) String(code int, s string) error {
	return c.context.String(code, s)
}
