package devserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
)

// FiberAdapter runs the dev server on Fiber
type FiberAdapter struct {
	app *fiber.App
}

// NewFiberAdapter creates an adapter over a fresh Fiber app
func NewFiberAdapter() *FiberAdapter {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(recover.New())

	return &FiberAdapter{app: app}
}

// RegisterRoute registers a route with the Fiber app
func (fa *FiberAdapter) RegisterRoute(method string, path Path, handler HandlerFunc, middlewares ...MiddlewareFunc) {
	fiberPath := path.format(colonParam, "*")
	fa.app.Add(strings.ToUpper(method), fiberPath, convertHandlerToFiber(chain(handler, middlewares)))
}

// Use adds global middleware
func (fa *FiberAdapter) Use(middleware MiddlewareFunc) {
	fa.app.Use(func(c *fiber.Ctx) error {
		return middleware(func(RequestContext) error { return c.Next() })(&fiberRequestContext{context: c})
	})
}

func (fa *FiberAdapter) Start(addr string) error {
	return fa.app.Listen(addr)
}

func (fa *FiberAdapter) Stop(ctx context.Context) error {
	return fa.app.ShutdownWithContext(ctx)
}

func (fa *FiberAdapter) Test(req *http.Request) (*http.Response, error) {
	return fa.app.Test(req, -1)
}

func (fa *FiberAdapter) Name() string {
	return "Fiber"
}

func convertHandlerToFiber(handler HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return handler(&fiberRequestContext{context: c})
	}
}

// fiberRequestContext copies every string it hands out: Fiber reuses the
// underlying buffers once the handler returns
type fiberRequestContext struct {
	context *fiber.Ctx
}

func (c *fiberRequestContext) Method() string { return utils.CopyString(c.context.Method()) }
func (c *fiberRequestContext) Path() string   { return utils.CopyString(c.context.Path()) }

func (c *fiberRequestContext) Param(key string) string {
	return utils.CopyString(c.context.Params(key))
}

// Context is the user context; fasthttp gives no disconnect signal
func (c *fiberRequestContext) Context() context.Context {
	return c.context.UserContext()
}

func (c *fiberRequestContext) QueryParam(key string) string {
	return utils.CopyString(c.context.Query(key))
}

func (c *fiberRequestContext) Header(key string) string {
	return utils.CopyString(c.context.Get(key))
}

func (c *fiberRequestContext) SetHeader(key, value string) {
	c.context.Set(key, value)
}

func (c *fiberRequestContext) JSON(code int, v any) error {
	return c.context.Status(code).JSON(v)
}

func (c *fiberRequestContext) Blob(code int, contentType string, b []byte) error {
	c.context.Set(fiber.HeaderContentType, contentType)
	return c.context.Status(code).Send(b)
}

func (c *fiberRequestContext) String(code int, s string) error {
	return c.context.Status(code).SendString(s)
}
