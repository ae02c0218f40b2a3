// Package debugapi предоставляет HTTP-интерфейс для просмотра состояния карты и порядка отрисовки.
package debugapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/render"
	"github.com/annel0/isomap/internal/world"
)

// Options содержит зависимости сервера
type Options struct {
	Addr      string               // Адрес прослушивания, например ":8088"
	Service   string               // Имя сервиса для трассировки
	Namespace string               // Префикс HTTP-метрик
	Map       *world.Map           // Карта
	Pipeline  *render.Pipeline     // Конвейер рендера
	Registry  *prometheus.Registry // Реестр метрик; nil — глобальный
	Logger    *logging.Logger      // Логгер компонента
}

// Server обслуживает отладочный REST API
type Server struct {
	router   *gin.Engine
	http     *http.Server
	m        *world.Map
	pipeline *render.Pipeline
	probe    *processProbe
	logger   *logging.Logger
}

// New создаёт сервер и настраивает маршруты
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8088"
	}
	if opts.Service == "" {
		opts.Service = "isoview"
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetAPILogger()
	}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(opts.Service))
	router.Use(requestLogger(opts.Logger))
	router.Use(newHTTPMetrics(opts.Namespace, reg).handler())

	s := &Server{
		router:   router,
		m:        opts.Map,
		pipeline: opts.Pipeline,
		probe:    newProcessProbe(),
		logger:   opts.Logger,
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/chunks", s.handleChunks)
	s.router.GET("/entities", s.handleEntities)
	s.router.GET("/render-order", s.handleRenderOrder)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до его остановки
func (s *Server) Start() error {
	s.logger.Info("🔍 Debug API listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно останавливает сервер
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
