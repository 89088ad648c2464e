// Package devserver serves a converted project over HTTP, converting again
// whenever the sources change.
package devserver

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/toyz/as2amd/internal/cli"
	"github.com/toyz/as2amd/internal/errors"
	"github.com/toyz/as2amd/internal/models"
)

const javascriptContentType = "application/javascript; charset=utf-8"

// Converter is the part of cli.Converter the server needs
type Converter interface {
	Load(ctx context.Context) ([]models.SourceFile, string, error)
	Convert(ctx context.Context, files []models.SourceFile, digest string) (*cli.Build, error)
}

// Server answers module requests from the build matching the current sources.
// Builds are cached by source digest, and concurrent requests for the same
// digest share one conversion.
type Server struct {
	web       WebServer
	converter Converter
	builds    *lru.Cache[string, *cli.Build]
	flight    singleflight.Group
	logger    logrus.FieldLogger
}

// New creates a server on web and registers its routes
func New(web WebServer, converter Converter, cacheSize int, logger logrus.FieldLogger) (*Server, error) {
	builds, err := lru.New[string, *cli.Build](cacheSize)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	s := &Server{web: web, converter: converter, builds: builds, logger: logger}
	web.Use(s.logRequests)
	web.RegisterRoute(http.MethodGet, "/healthz", s.health)
	web.RegisterRoute(http.MethodGet, "/manifest.json", s.manifest)
	web.RegisterRoute(http.MethodGet, "/graph.json", s.graph)
	web.RegisterRoute(http.MethodGet, "/modules/{*}", s.module)
	return s, nil
}

// Web returns the engine the server runs on
func (s *Server) Web() WebServer {
	return s.web
}

// Run serves addr until ctx is done, then shuts down within timeout
func (s *Server) Run(ctx context.Context, addr string, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.web.Start(addr)
	}()
	s.logger.WithFields(logrus.Fields{"addr": addr, "engine": s.web.Name()}).Info("dev server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.web.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Current returns the build for the sources as they are now
func (s *Server) Current(ctx context.Context) (*cli.Build, error) {
	files, digest, err := s.converter.Load(ctx)
	if err != nil {
		return nil, err
	}
	if b, ok := s.builds.Get(digest); ok {
		return b, nil
	}

	ch := s.flight.DoChan(digest, func() (any, error) {
		b, err := s.converter.Convert(ctx, files, digest)
		if err != nil {
			return nil, err
		}
		s.builds.Add(digest, b)
		s.logger.WithFields(logrus.Fields{
			"run_id":  b.RunID.String(),
			"digest":  digest,
			"modules": len(b.Modules),
		}).Info("converted project")
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cli.Build), nil
	}
}

func (s *Server) health(c RequestContext) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"engine": s.web.Name(),
		"cached": s.builds.Len(),
	})
}

func (s *Server) manifest(c RequestContext) error {
	b, err := s.Current(c.Context())
	if err != nil {
		return s.failure(c, err)
	}
	m, err := cli.NewManifest(b)
	if err != nil {
		return s.failure(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) graph(c RequestContext) error {
	b, err := s.Current(c.Context())
	if err != nil {
		return s.failure(c, err)
	}
	return c.JSON(http.StatusOK, cli.DescribeGraph(b))
}

func (s *Server) module(c RequestContext) error {
	name := c.Param("*")
	if !strings.HasSuffix(name, models.ModuleSuffix) {
		name += models.ModuleSuffix
	}

	b, err := s.Current(c.Context())
	if err != nil {
		return s.failure(c, err)
	}
	m, ok := b.Module(models.ModuleID(name))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "no module " + name})
	}

	c.SetHeader("X-As2amd-Run", b.RunID.String())
	c.SetHeader("X-As2amd-Kind", m.Kind.String())
	return c.Blob(http.StatusOK, javascriptContentType, []byte(m.Content))
}

// failedError is one entry of a failure response
type failedError struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// failure answers 500 with every error a conversion collected
func (s *Server) failure(c RequestContext, err error) error {
	body := map[string]any{"error": err.Error()}

	var list []errors.ConvertError
	var phaseErr *errors.PhaseError
	var multi *errors.MultipleErrors
	switch {
	case stderrors.As(err, &phaseErr):
		body["error"] = phaseErr.Phase
		list = phaseErr.Errors.Errors
	case stderrors.As(err, &multi):
		list = multi.Errors
	default:
		if ce := errors.AsConvertError(err, errors.UnknownErrorCode); ce != nil {
			list = []errors.ConvertError{ce}
		}
	}

	entries := make([]failedError, 0, len(list))
	for _, e := range list {
		entry := failedError{Kind: e.ErrorCode().String(), Message: e.Error()}
		if loc := e.Location(); !loc.IsEmpty() {
			entry.Location = loc.String()
		}
		entries = append(entries, entry)
	}
	body["errors"] = entries

	s.logger.WithError(err).WithField("path", c.Path()).Warn("conversion failed")
	return c.JSON(http.StatusInternalServerError, body)
}

func (s *Server) logRequests(next HandlerFunc) HandlerFunc {
	return func(c RequestContext) error {
		start := time.Now()
		err := next(c)
		s.logger.WithFields(logrus.Fields{
			"method":   c.Method(),
			"path":     c.Path(),
			"duration": time.Since(start).String(),
		}).Debug("request")
		return err
	}
}
