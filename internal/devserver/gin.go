package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// GinAdapter runs the dev server on Gin. Gin has no lifecycle of its own, so
// the adapter serves it from an http.Server it can shut down.
type GinAdapter struct {
	engine *gin.Engine

	mu     sync.Mutex
	server *http.Server
}

// NewGinAdapter creates an adapter over a fresh Gin engine without the
// default logger
func NewGinAdapter() *GinAdapter {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	return &GinAdapter{engine: engine}
}

// RegisterRoute registers a route with the Gin engine
func (ga *GinAdapter) RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	ginPath := path.format(colonParam, "*path")
	ga.engine.Handle(method, ginPath, ga.convertHandler(chain(handler, middlewares)))
}

// Use adds global middleware
func (ga *GinAdapter) Use(middleware MiddlewareFunc) {
	ga.engine.Use(func(c *gin.Context) {
		ctx := &ginRequestContext{context: c}
		err := middleware(func(RequestContext) error {
			c.Next()
			return nil
		})(ctx)
		if err != nil {
			_ = c.Error(err)
		}
	})
}

func (ga *GinAdapter) Start(addr string) error {
	ga.mu.Lock()
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	server := ga.server
	ga.mu.Unlock()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ga *GinAdapter) Stop(ctx context.Context) error {
	ga.mu.Lock()
	server := ga.server
	ga.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (ga *GinAdapter) Test(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	ga.engine.ServeHTTP(rec, req)
	return rec.Result(), nil
}

func (ga *GinAdapter) Name() string {
	return "Gin"
}

func (ga *GinAdapter) convertHandler(handler HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&ginRequestContext{context: c}); err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
		}
	}
}

type ginRequestContext struct {
	context *gin.Context
}

func (c *ginRequestContext) Method() string { return c.context.Request.Method }
func (c *ginRequestContext) Path() string   { return c.context.Request.URL.Path }

func (c *ginRequestContext) Param(key string) string {
	if key == "*" {
		return strings.TrimPrefix(c.context.Param("path"), "/")
	}
	return c.context.Param(key)
}

func (c *ginRequestContext) Context() context.Context {
	return c.context.Request.Context()
}

func (c *ginRequestContext) QueryParam(key string) string {
	return c.context.Query(key)
}

func (c *ginRequestContext) Header(key string) string {
	return c.context.GetHeader(key)
}

func (c *ginRequestContext) SetHeader(key, value string) {
	c.context.Header(key, value)
}

func (c *ginRequestContext) JSON(code int, v any) error {
	c.context.JSON(code, v)
	return nil
}

func (c *ginRequestContext) Blob(code int, contentType string, b []byte) error {
	c.context.Data(code, contentType, b)
	return nil
}

func (c *ginRequestContext) String(code int, s string) error {
	c.context.String(code, "%s", s)
	return nil
}
