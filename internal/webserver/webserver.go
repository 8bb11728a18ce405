// Package webserver hosts the admin REST API. Handler packages register
// their routes through the Api* helpers at init time; Init builds the echo
// instance, wires JWT auth and mounts everything under /api/v1.
package webserver

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/zapcrmio/zapcrm/internal/app"
	"go.uber.org/zap"
)

// Context keys consumed by handler packages.
const (
	ContextKeyApp = "zapcrm_app"
)

type apiRoute struct {
	method  string
	path    string
	handler echo.HandlerFunc
}

var (
	routeMu   sync.Mutex
	apiRoutes []apiRoute
	pubRoutes []apiRoute
)

func addRoute(routes *[]apiRoute, method, path string, handler echo.HandlerFunc) {
	routeMu.Lock()
	*routes = append(*routes, apiRoute{method: method, path: path, handler: handler})
	routeMu.Unlock()
}

// ApiGET registers an authenticated GET route under /api/v1.
func ApiGET(path string, handler echo.HandlerFunc) {
	addRoute(&apiRoutes, http.MethodGet, path, handler)
}

func ApiPOST(path string, handler echo.HandlerFunc) {
	addRoute(&apiRoutes, http.MethodPost, path, handler)
}

func ApiPUT(path string, handler echo.HandlerFunc) {
	addRoute(&apiRoutes, http.MethodPut, path, handler)
}

func ApiDELETE(path string, handler echo.HandlerFunc) {
	addRoute(&apiRoutes, http.MethodDelete, path, handler)
}

// PubPOST registers an unauthenticated POST route under /api/v1 (login,
// inbound webhooks).
func PubPOST(path string, handler echo.HandlerFunc) {
	addRoute(&pubRoutes, http.MethodPost, path, handler)
}

func PubGET(path string, handler echo.HandlerFunc) {
	addRoute(&pubRoutes, http.MethodGet, path, handler)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type WebServer struct {
	root   *echo.Echo
	appCtx app.AppContext
}

var server *WebServer

// Init builds the web server around the application context.
func Init(appCtx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI: true, LogStatus: true, LogMethod: true, LogLatency: true, LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.String("remote_ip", v.RemoteIP),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	// expose the application context to every handler
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyApp, appCtx)
			return next(c)
		}
	})

	server = &WebServer{root: e, appCtx: appCtx}
	server.mountRoutes()
	return server
}

func (s *WebServer) mountRoutes() {
	base := s.root.Group("/api/v1")

	routeMu.Lock()
	defer routeMu.Unlock()

	for _, r := range pubRoutes {
		base.Add(r.method, r.path, r.handler)
	}

	secret := s.appCtx.Config().Web.JwtSecret
	api := base.Group("", echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(secret),
	}))
	for _, r := range apiRoutes {
		api.Add(r.method, r.path, r.handler)
	}

	s.root.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Listen blocks serving HTTP until the listener fails or is shut down.
func (s *WebServer) Listen() error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.S().Infof("admin api listening on %s", addr)
	return s.root.Start(addr)
}

// Echo exposes the underlying echo instance (used in tests).
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}
