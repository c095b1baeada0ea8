package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	_ "github.com/jhoicas/Entregas-api/docs"
	"github.com/jhoicas/Entregas-api/internal/application/delivery"
	"github.com/jhoicas/Entregas-api/internal/application/ports"
	"github.com/jhoicas/Entregas-api/internal/application/stock"
	"github.com/jhoicas/Entregas-api/internal/domain/repository"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/cache"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/i18n"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Entregas-api/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/Entregas-api/internal/interfaces/http"
	"github.com/jhoicas/Entregas-api/pkg/config"
	"github.com/jhoicas/Entregas-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	// Persistencia: PostgreSQL en producción, memoria para demos locales.
	var (
		txRunner stock.TxRunner
		reads    repository.Repos
	)
	switch cfg.App.StorageDriver {
	case "memory":
		store := memory.New()
		txRunner, reads = store, store.Repos()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.Migrate {
			if err := postgres.Migrate(pool, log.Named("migrate")); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner, reads = postgres.NewTxRunner(pool), postgres.NewRepos(pool)
	}

	// Caché de snapshots: opcional. Se refresca tras cada commit de stock.
	var snapshotCache stock.SnapshotCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis no disponible, caché deshabilitada")
		} else {
			snapshotCache = cache.NewStockCache(rdb, cfg.Redis.TTL)
		}
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log.Named("telemetry"))
	if err != nil {
		log.Fatal().Err(err).Msg("proveedor de métricas")
	}
	var recorder ports.DurationRecorder = ports.NopRecorder{}
	if rec, err := telemetry.NewOperationRecorder(meters.Meter(cfg.App.Name)); err != nil {
		log.Warn().Err(err).Msg("histograma de operaciones no disponible")
	} else {
		recorder = rec
	}

	translator, err := i18n.NewTranslator(reads.User, cfg.App.DefaultLocale, log.Named("i18n"))
	if err != nil {
		log.Fatal().Err(err).Msg("traductor")
	}

	uow := stock.NewUnitOfWork(txRunner, stock.UnitOfWorkConfig{
		MaxAttempts: cfg.Stock.MaxAttempts,
		Backoff:     cfg.Stock.RetryBackoff,
	}, log.Named("uow"))
	ledger := stock.NewLedger()
	stockUC := stock.NewStockUseCase(uow, ledger, reads.Stock, reads.History, snapshotCache, recorder, log.Named("stock"))
	orchestrator := delivery.NewOrchestrator(uow, ledger, reads.Delivery, snapshotCache, translator, recorder, log)

	// Productos con seguimiento que aún no tienen fila de stock.
	if created, err := stockUC.Backfill(ctx); err != nil {
		log.Fatal().Err(err).Msg("backfill de stock")
	} else if created > 0 {
		log.Info().Int("created", created).Msg("filas de stock creadas")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Entregas API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		StockUC:      stockUC,
		Orchestrator: orchestrator,
		Translator:   translator,
		Logger:       log,
		JWTSecret:    cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := meters.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de métricas")
	}

	log.Info().Msg("aplicación detenida")
}
