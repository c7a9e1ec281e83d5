package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osama-eldrieny/cohort-manager-sub000/core"
)

type (
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool
		Store          core.Store
		Logger         core.Logger
		Validator      *core.Validator
		Metrics        prometheus.Gatherer // served on /metrics when set
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.Validator == nil {
		opts.Validator = core.NewValidator()
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV mode
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/health", health(s.opts.Store))
	if s.opts.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.opts.Metrics, promhttp.HandlerOpts{})))
	}

	v1 := s.app.Group("/v1")
	registerEntityAPI(v1, s.opts.Store, s.opts.Validator)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func health(store core.Store) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		status := http.StatusOK
		body := echo.Map{"status": "ok", "backend": store.Backend()}
		if err := store.Ping(ctx.Request().Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
		}
		return ctx.JSON(status, body)
	}
}
