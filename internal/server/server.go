package server

import (
	"time"

	"backend-spothitch/internal/alert"
	"backend-spothitch/internal/auth"
	"backend-spothitch/internal/battery"
	"backend-spothitch/internal/config"
	"backend-spothitch/internal/guard"
	"backend-spothitch/internal/history"
	"backend-spothitch/internal/store"
	"backend-spothitch/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App     *fiber.App
	Cfg     config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Stream  *stream.Hub
	Manager *guard.Manager
	Archive history.Archiver
}

// NewServer wires the check-in engine with whatever infrastructure is
// reachable: redis-backed persistence and postgres-backed history degrade
// to in-memory variants so the safety engine never refuses to run.
func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)

	var durable store.DurableStore
	if redisClient != nil {
		durable = store.NewRedisStore(redisClient)
	} else {
		durable = store.NewMemoryStore()
	}

	var archive history.Archiver
	if db != nil {
		archive = history.NewArchive(db)
	} else {
		archive = history.NewMemoryArchive()
	}

	notifier := alert.LogSink{}
	dispatcher := alert.NewDispatcher(notifier, hub)
	positions := guard.NewReportedProvider(2 * time.Minute)
	batteryReports := battery.NewReportProvider()

	var mgr *guard.Manager
	batteryGuard := battery.NewGuard(batteryReports, notifier, func(level float64) {
		mgr.ReportBattery(level)
	})
	mgr = guard.NewManager(guard.Config{
		Dispatcher:     dispatcher,
		Notifier:       notifier,
		Positions:      positions,
		Store:          durable,
		Archive:        archive,
		Battery:        batteryGuard,
		TickEvery:      time.Duration(cfg.TickSeconds) * time.Second,
		DepartureDelay: time.Duration(cfg.DepartureDelaySeconds) * time.Second,
	})

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      db,
		Redis:   redisClient,
		Stream:  hub,
		Manager: mgr,
		Archive: archive,
	}

	registerRoutes(s, positions, batteryReports)
	return s
}

func registerRoutes(s *Server, positions *guard.ReportedProvider, batteryReports *battery.ReportProvider) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	guard.RegisterRoutes(s.App.Group("/trip"), s.Manager, positions, batteryReports, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/history"), s.Archive, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
