package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wellness/wellness/internal/config"
	"github.com/wellness/wellness/internal/domain/alert"
	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/domain/identity"
	"github.com/wellness/wellness/internal/domain/questionnaire"
	"github.com/wellness/wellness/internal/domain/rollup"
	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/cache"
	"github.com/wellness/wellness/internal/platform/db"
	"github.com/wellness/wellness/internal/platform/events"
	"github.com/wellness/wellness/internal/platform/middleware"
	"github.com/wellness/wellness/internal/platform/tracing"
)

const serviceName = "wellness-api"

func main() {
	rootCmd := &cobra.Command{
		Use:   "wellness-server",
		Short: "Corporate wellness API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// withPool loads config, connects and runs fn against the pool.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				migrator, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				defer migrator.Close()

				count, err := migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				migrator, err := db.NewMigrator(pool)
				if err != nil {
					return err
				}
				defer migrator.Close()

				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	})

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed reference data and accounts",
	}

	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Create or refresh the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ADMIN_PASSWORD")
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := newServices(pool, company.NewRepoPG(pool), events.Nop{}, cfg, newLogger(cfg.Env))
				u, err := svc.identity.SeedAdmin(ctx, name, email, password)
				if err != nil {
					return err
				}
				fmt.Printf("Admin ready: %s <%s>\n", u.Name, u.Email)
				return nil
			})
		},
	}
	adminCmd.Flags().String("name", "Admin", "Display name")
	adminCmd.Flags().String("email", "", "Login email")
	adminCmd.Flags().String("password", "", "Password (defaults to $ADMIN_PASSWORD)")
	cmd.AddCommand(adminCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "companies [name...]",
		Short: "Insert companies by id order, skipping ids that exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = company.DefaultNames
			}
			return withPool(func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
				n, err := company.NewService(company.NewRepoPG(pool)).Seed(ctx, names)
				if err != nil {
					return err
				}
				fmt.Printf("Seeded %d new compan(ies).\n", n)
				return nil
			})
		},
	})

	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, logger, cfg.OTLPEndpoint, serviceName, cfg.Env)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	// Database
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Company cache
	var companyRepo company.Repository = company.NewRepoPG(pool)
	if cfg.RedisURL != "" {
		store, err := cache.NewRedisStore(ctx, cfg.RedisURL, "wellness:")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, company cache disabled")
		} else {
			defer store.Close()
			companyRepo = company.NewCachedRepository(companyRepo, store, cfg.CompanyCacheTTL, logger)
			logger.Info().Msg("company cache enabled")
		}
	}

	// Events
	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		pub = kp
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("event publishing enabled")
	}

	svc := newServices(pool, companyRepo, pub, cfg, logger)
	e := newRouter(cfg, logger, svc, pool, db.StatsFunc(pool))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(e, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

type services struct {
	alerts        *alert.Service
	followups     *followup.Service
	companies     *company.Service
	clients       *client.Service
	questionnaire *questionnaire.Service
	identity      *identity.Service
	rollup        *rollup.Service
}

// newServices wires the domain services in dependency order.
func newServices(q db.Querier, companyRepo company.Repository, pub events.Publisher, cfg *config.Config, logger zerolog.Logger) *services {
	s := &services{}
	s.alerts = alert.NewService(alert.NewRepoPG(q))
	s.followups = followup.NewService(followup.NewRepoPG(q), s.alerts, pub, logger)
	s.companies = company.NewService(companyRepo)
	s.clients = client.NewService(client.NewClientRepoPG(q), client.NewIntakeRepoPG(q), s.companies, s.followups, pub, logger)
	s.questionnaire = questionnaire.NewService(questionnaire.NewRepoPG(q), pub, logger)
	s.identity = identity.NewService(identity.NewRepoPG(q),
		auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL),
		auth.NewAllowlist(cfg.NutritionistAllowlist),
		s.clients, logger)
	s.rollup = rollup.NewService(s.companies, s.clients, s.followups, s.questionnaire, s.identity, logger)
	return s
}

func newRouter(cfg *config.Config, logger zerolog.Logger, svc *services, pinger db.Pinger, stats func() *db.PoolStats) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger, !cfg.IsProduction())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pinger, stats))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	rateLimit := func(key func(echo.Context) string) echo.MiddlewareFunc {
		rl := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}
		if rl.RequestsPerSecond <= 0 {
			rl = middleware.DefaultRateLimitConfig()
		}
		rl.KeyFunc = key
		return middleware.RateLimit(rl)
	}

	api := e.Group("/api")

	identityHandler := identity.NewHandler(svc.identity)
	questionnaireHandler := questionnaire.NewHandler(svc.questionnaire)

	public := api.Group("", rateLimit(middleware.KeyByIP))
	identityHandler.RegisterPublicRoutes(public)
	questionnaireHandler.RegisterPublicRoutes(public)

	protected := api.Group("",
		auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.JWTSecret)}),
		rateLimit(middleware.KeyByUser),
		middleware.Audit(logger),
	)
	identityHandler.RegisterRoutes(protected)
	questionnaireHandler.RegisterRoutes(protected)
	company.NewHandler(svc.companies).RegisterRoutes(protected)
	client.NewHandler(svc.clients).RegisterRoutes(protected)
	followup.NewHandler(svc.followups).RegisterRoutes(protected)
	alert.NewHandler(svc.alerts).RegisterRoutes(protected)
	rollup.NewHandler(svc.rollup).RegisterRoutes(protected)

	return e
}
