// Команда isoview прогоняет кадры изометрического рендера по карте:
// камера идёт по миру, карта подкачивает чанки, сортировщик выдаёт порядок отрисовки.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/isomap/internal/config"
	"github.com/annel0/isomap/internal/debugapi"
	"github.com/annel0/isomap/internal/logging"
	"github.com/annel0/isomap/internal/metrics"
	"github.com/annel0/isomap/internal/observability"
	"github.com/annel0/isomap/internal/render"
	"github.com/annel0/isomap/internal/storage"
	"github.com/annel0/isomap/internal/vec"
	"github.com/annel0/isomap/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или ENV ISOMAP_CONFIG)")
	frames := flag.Int("frames", 0, "число кадров; 0 — до сигнала остановки")
	sorterName := flag.String("sorter", "", "стратегия сортировки: none | depth | topological")
	interval := flag.Duration("interval", 100*time.Millisecond, "пауза между кадрами")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if *sorterName != "" {
		cfg.Render.Sorter = *sorterName
	}

	if err := setupLogging(cfg.Logging); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *frames, *interval); err != nil {
		logging.Error("❌ %v", err)
		os.Exit(1)
	}
	logging.Info("✅ isoview остановлен")
}

func setupLogging(cfg config.LoggingConfig) error {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if cfg.Files {
		if err := logging.InitDefaultLogger("isoview"); err != nil {
			return err
		}
		logging.GetLoggerManager().EnableFiles(true)
	}
	logging.Default().SetLevels(level, logging.TRACE)
	for _, component := range []string{"world", "storage", "render", "api"} {
		logging.GetComponentLogger(component)
		if err := logging.GetLoggerManager().SetLogLevel(component, level, logging.TRACE); err != nil {
			return err
		}
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, frames int, interval time.Duration) error {
	logging.Info("🗺️ Запуск isoview: world=%s seed=%d sorter=%s storage=%s",
		cfg.Map.Name, cfg.Map.Seed, cfg.Render.Sorter, cfg.Storage.Backend)

	// === НАБЛЮДАЕМОСТЬ ===
	shutdownTelemetry, err := observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("Ошибка остановки телеметрии: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	var mt *metrics.Metrics
	if cfg.Metrics.Enabled {
		mt = metrics.New(cfg.Metrics.Namespace, registry)
	}

	// === КАРТА ===
	worldID := world.WorldID(cfg.Map.Name)
	backend, err := storage.Open(ctx, cfg.Storage, worldID)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer backend.Close()

	m := world.NewMap(world.Options{
		Name:       cfg.Map.Name,
		Seed:       cfg.Map.Seed,
		MemoryArea: cfg.Map.MemoryArea,
		WorldSpin:  cfg.Map.WorldSpin,
		Generator:  world.NewPerlinGenerator(cfg.Map.Seed),
		Storage:    backend,
		Metrics:    mt,
	})
	defer func() {
		if err := m.Dispose(context.Background()); err != nil {
			logging.Error("Ошибка сохранения карты: %v", err)
		}
	}()

	// === РЕНДЕР ===
	kind, err := render.ParseSorterKind(cfg.Render.Sorter)
	if err != nil {
		return err
	}
	sorter, err := render.NewSorter(kind, cfg.Render.MaxSprites, mt)
	if err != nil {
		return err
	}
	p := render.NewPipeline(m, sorter, mt)
	defer p.Close()

	cams := make([]*render.BasicCamera, 0, cfg.Render.Cameras)
	for i := 0; i < cfg.Render.Cameras; i++ {
		cam := render.NewBasicCamera(i, vec.Vec2{X: i, Y: 0})
		cam.SetZLimit(cfg.Render.ZLimit)
		if err := p.AddCamera(cam); err != nil {
			return err
		}
		cams = append(cams, cam)
	}

	// === HTTP ===
	servers := startHTTP(cfg, m, p, registry)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, shutdown := range servers {
			if err := shutdown(shutdownCtx); err != nil {
				logging.Warn("Ошибка остановки HTTP сервера: %v", err)
			}
		}
	}()

	return frameLoop(ctx, m, p, cams, frames, interval)
}

// frameLoop двигает камеры вдоль оси X и рисует кадры до отмены контекста
func frameLoop(ctx context.Context, m *world.Map, p *render.Pipeline, cams []*render.BasicCamera, frames int, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var emitted int
	renderer := render.RendererFunc(func(render.Item) { emitted++ })

	for frame := 0; frames <= 0 || frame < frames; frame++ {
		center := vec.Vec2{X: frame / 10, Y: 0}
		for i, cam := range cams {
			cam.SetCenter(vec.Vec2{X: center.X + i, Y: center.Y})
		}
		if err := m.UpdateReference(ctx, center); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		emitted = 0
		stats := p.Frame(renderer)
		for _, s := range stats {
			logging.Debug("🎞️ frame=%d camera=%d cells=%d emitted=%d", frame, s.Camera, s.Cells, s.Emitted)
		}
		if frame%50 == 0 {
			logging.Info("🎞️ frame=%d reference=(%d,%d) resident=%d render_chunks=%d drawn=%d",
				frame, center.X, center.Y, len(m.ResidentChunks()), p.RenderChunks(), emitted)
		}

		select {
		case <-ctx.Done():
			logging.Info("🛑 Получен сигнал остановки")
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// startHTTP запускает отладочный API и отдельный endpoint метрик.
// Возвращает функции остановки запущенных серверов.
func startHTTP(cfg *config.Config, m *world.Map, p *render.Pipeline, registry *prometheus.Registry) []func(context.Context) error {
	var servers []func(context.Context) error

	if cfg.DebugAPI.Enabled {
		api := debugapi.New(debugapi.Options{
			Addr:      fmt.Sprintf(":%d", cfg.DebugAPI.GetPort()),
			Service:   cfg.Telemetry.ServiceName,
			Namespace: cfg.Metrics.Namespace,
			Map:       m,
			Pipeline:  p,
			Registry:  registry,
		})
		go func() {
			if err := api.Start(); err != nil {
				logging.Error("❌ Debug API: %v", err)
			}
		}()
		servers = append(servers, api.Shutdown)
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.GetPort()),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("📊 Метрики Prometheus на %s/metrics", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("❌ Metrics server: %v", err)
			}
		}()
		servers = append(servers, srv.Shutdown)
	}
	return servers
}
