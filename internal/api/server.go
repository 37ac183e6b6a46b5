// Package api serves autoinstall documents and installation trigger
// callbacks over HTTP. Installers fetch their documents from here
// during a network install, and the injected trigger scripts report
// progress back.
package api

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bootforge/bootforge/internal/autoinstall"
	"github.com/bootforge/bootforge/internal/templates"
)

// Server is the autoinstall HTTP service.
type Server struct {
	gen      *autoinstall.Generator
	renderer *templates.Renderer
}

func NewServer(gen *autoinstall.Generator, renderer *templates.Renderer) *Server {
	return &Server{gen: gen, renderer: renderer}
}

// Handler builds the echo handler tree.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Logger = serviceLogger
	e.Use(middleware.Recover())
	e.Use(metricsMiddleware)

	e.GET("/cblr/svc/op/autoinstall/profile/:name", s.autoinstallProfile)
	e.GET("/cblr/svc/op/autoinstall/system/:name", s.autoinstallSystem)
	e.GET("/cblr/svc/op/trig/mode/:mode/:type/:name", s.trigger)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// Serve runs the handler on l until the listener closes.
func (s *Server) Serve(l net.Listener) error {
	server := &http.Server{Handler: s.Handler()}
	return server.Serve(l)
}

func (s *Server) autoinstallProfile(c echo.Context) error {
	return s.serveDocument(c, "profile", s.gen.ForProfile)
}

func (s *Server) autoinstallSystem(c echo.Context) error {
	return s.serveDocument(c, "system", s.gen.ForSystem)
}

func (s *Server) serveDocument(c echo.Context, kind string, generate func(string) (string, error)) error {
	name := c.Param("name")
	document, err := generate(name)
	if err != nil {
		documentFailures.Inc()
		logrus.WithFields(logrus.Fields{
			"kind": kind,
			"name": name,
		}).Errorf("Generating autoinstall document failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, renderErr := range s.renderer.LastErrors() {
		logrus.WithFields(logrus.Fields{
			"kind": kind,
			"name": name,
		}).Warnf("Render warning: %v", renderErr)
	}
	return c.String(http.StatusOK, document)
}

// trigger records an installation progress callback. The body of the
// response is the literal string installers historically expect.
func (s *Server) trigger(c echo.Context) error {
	mode := c.Param("mode")
	kind := c.Param("type")
	name := c.Param("name")
	if (mode != "pre" && mode != "post") || (kind != "profile" && kind != "system") {
		return c.String(http.StatusBadRequest, "False")
	}
	logrus.WithFields(logrus.Fields{
		"mode": mode,
		"kind": kind,
		"name": name,
	}).Info("Install trigger received")
	return c.String(http.StatusOK, "True")
}
