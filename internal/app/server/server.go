package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/compliance"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/domain/leave"
	"staffdesk/internal/domain/reports"
	"staffdesk/internal/platform/config"
	"staffdesk/internal/platform/crypto"
	"staffdesk/internal/platform/db"
	"staffdesk/internal/platform/jobs"
	"staffdesk/internal/platform/metrics"
	"staffdesk/internal/platform/uploads"
	"staffdesk/internal/transport/http/api"
	audithandler "staffdesk/internal/transport/http/handlers/audit"
	authhandler "staffdesk/internal/transport/http/handlers/auth"
	employeeshandler "staffdesk/internal/transport/http/handlers/employees"
	leavehandler "staffdesk/internal/transport/http/handlers/leave"
	reportshandler "staffdesk/internal/transport/http/handlers/reports"
	"staffdesk/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Services Services
	Metrics  *metrics.Collector
	Jobs     *jobs.Service
	Router   http.Handler
}

// Services are the domain services behind the HTTP API.
type Services struct {
	Employees   *employees.Service
	Leave       *leave.Service
	Reports     *reports.Service
	Audit       *audit.Service
	Uploads     *uploads.Disk
	Idempotency middleware.IdempotencyStore
}

type stores struct {
	employees   employees.StoreAPI
	leave       leave.StoreAPI
	reports     reports.StoreAPI
	audit       audit.StoreAPI
	idempotency middleware.IdempotencyStore
}

func Run() {
	cfg := config.Load()
	slog.SetDefault(NewLogger(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown failed", "err", err)
		}
	}()

	slog.Info("staffdesk server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "env", cfg.Environment)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// NewLogger returns a JSON logger at the named level. Unknown levels mean info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New connects storage, applies migrations and seed data when configured, and
// builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.New()}

	var st stores
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		st = postgresStores(pool)
	default:
		slog.Warn("using in-memory storage; data is lost on restart")
		st = memoryStores()
	}

	services, err := buildServices(cfg, st, app.Metrics)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Services = services

	if cfg.RunSeed {
		if err := db.Seed(ctx, services.Employees, cfg); err != nil {
			app.Close()
			return nil, err
		}
	}

	app.Jobs = scheduleMaintenance(cfg, services, app.Metrics)
	app.Jobs.Start(ctx)

	app.Router = NewRouter(cfg, services, app.Metrics, app.ready)
	return app, nil
}

// scheduleMaintenance registers housekeeping that keeps the idempotency and
// audit tables bounded.
func scheduleMaintenance(cfg config.Config, services Services, collector *metrics.Collector) *jobs.Service {
	svc := jobs.New(collector)
	if cfg.IdempotencyTTL > 0 {
		svc.Schedule(jobs.JobIdempotencyPurge, cfg.MaintenanceInterval, func(ctx context.Context) (any, error) {
			purged, err := services.Idempotency.Purge(ctx, time.Now().Add(-cfg.IdempotencyTTL))
			return map[string]any{"purged": purged}, err
		})
	}
	if cfg.AuditRetentionDays > 0 {
		svc.Schedule(jobs.JobAuditRetention, cfg.MaintenanceInterval, func(ctx context.Context) (any, error) {
			deleted, err := services.Audit.Prune(ctx, cfg.AuditRetentionDays, time.Now())
			return map[string]any{"retentionDays": cfg.AuditRetentionDays, "deleted": deleted}, err
		})
	}
	return svc
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) ready(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Ping(ctx)
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		employees:   employees.NewStore(pool),
		leave:       leave.NewStore(pool, pool),
		reports:     reports.NewStore(pool),
		audit:       audit.NewStore(pool),
		idempotency: middleware.NewIdempotencyStore(pool),
	}
}

func memoryStores() stores {
	directory := employees.NewMemoryStore()
	return stores{
		employees:   directory,
		leave:       leave.NewMemoryStore(directory),
		reports:     reports.NewMemoryStore(directory),
		audit:       audit.NewMemoryStore(),
		idempotency: middleware.NewMemoryIdempotencyStore(),
	}
}

func buildServices(cfg config.Config, st stores, collector *metrics.Collector) (Services, error) {
	loc := cfg.Location()

	cutoffs, err := compliance.ParseCutoffs(cfg.ReportOnTimeCutoff, cfg.ReportLateFineCutoff, cfg.ReportHalfDayCutoff)
	if err != nil {
		return Services{}, fmt.Errorf("report cutoffs: %w", err)
	}
	types, err := leave.ParseTypes(cfg.LeaveTypes)
	if err != nil {
		return Services{}, fmt.Errorf("leave types: %w", err)
	}
	sealer, err := crypto.NewSealer(cfg.DataEncryptionKey)
	if err != nil {
		return Services{}, err
	}
	disk, err := uploads.NewDisk(cfg.UploadsDir, cfg.MaxUploadBytes)
	if err != nil {
		return Services{}, fmt.Errorf("uploads dir: %w", err)
	}

	evaluator := leave.NewEvaluator(leave.Policy{
		AdvanceNotice:          cfg.LeaveAdvanceNotice,
		MaxConsecutivePerMonth: cfg.LeaveMaxConsecutiveDays,
		AnnualQuota:            cfg.LeaveAnnualQuota,
	}, loc)
	leaveSvc := leave.NewService(st.leave, evaluator, types, collector)
	reportsSvc := reports.NewService(st.reports, compliance.NewClassifier(cutoffs, loc), collector)
	employeesSvc := employees.NewService(st.employees, sealer, "staffdesk")
	employeesSvc.OnDelete = []employees.CleanupFunc{
		func(ctx context.Context, employeeID string) error {
			certificates, err := leaveSvc.DeleteByEmployee(ctx, employeeID)
			if err != nil {
				return err
			}
			for _, name := range certificates {
				if err := disk.Remove(name); err != nil {
					slog.Warn("certificate cleanup failed", "employeeId", employeeID, "file", name, "err", err)
				}
			}
			return nil
		},
		reportsSvc.DeleteByEmployee,
	}

	return Services{
		Employees:   employeesSvc,
		Leave:       leaveSvc,
		Reports:     reportsSvc,
		Audit:       audit.New(st.audit),
		Uploads:     disk,
		Idempotency: st.idempotency,
	}, nil
}

// NewRouter mounts the API under /api/v1 with the shared middleware chain.
func NewRouter(cfg config.Config, services Services, collector *metrics.Collector, ready func(context.Context) error) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-Total-Count", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes + cfg.MaxUploadBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ready != nil {
			if err := ready(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequireAdmin).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(services.Employees, services.Audit, cfg.JWTSecret, cfg.TokenTTL).RegisterRoutes(r)
		employeeshandler.NewHandler(services.Employees, services.Audit).RegisterRoutes(r)
		leavehandler.NewHandler(services.Leave, services.Uploads, services.Audit, services.Idempotency).RegisterRoutes(r)
		reportshandler.NewHandler(services.Reports, services.Audit, services.Idempotency).RegisterRoutes(r)
		audithandler.NewHandler(services.Audit).RegisterRoutes(r)
	})

	return router
}
