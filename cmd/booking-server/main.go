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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/medibook/booking/internal/config"
	"github.com/medibook/booking/internal/domain/dashboard"
	"github.com/medibook/booking/internal/domain/directory"
	"github.com/medibook/booking/internal/domain/identity"
	"github.com/medibook/booking/internal/domain/scheduling"
	"github.com/medibook/booking/internal/platform/auth"
	"github.com/medibook/booking/internal/platform/clock"
	"github.com/medibook/booking/internal/platform/db"
	"github.com/medibook/booking/internal/platform/middleware"
	"github.com/medibook/booking/internal/platform/websocket"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "booking-server",
		Short:         "Doctor appointment booking API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the booking API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, newLogger(cfg))
		},
	}
}

// stores are the persistence collaborators for one driver.
type stores struct {
	users   identity.UserRepository
	doctors directory.DoctorRepository
	appts   scheduling.AppointmentRepository
	pool    *pgxpool.Pool
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func openStores(ctx context.Context, cfg *config.Config, now time.Time) (*stores, error) {
	if cfg.StoreDriver == config.DriverPostgres {
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return nil, err
		}
		return &stores{
			users:   identity.NewUserRepoPG(pool),
			doctors: directory.NewDoctorRepoPG(pool),
			appts:   scheduling.NewAppointmentRepoPG(pool),
			pool:    pool,
		}, nil
	}

	catalog := directory.DefaultCatalog(now)
	st := &stores{
		users:   identity.NewUserRepoMemory(),
		doctors: directory.NewDoctorRepoMemory(catalog...),
		appts:   scheduling.NewAppointmentRepoMemory(),
	}
	if err := seedUsers(ctx, identity.NewService(st.users), catalog); err != nil {
		return nil, err
	}
	return st, nil
}

// app is the wired server. Tests build it over memory stores.
type app struct {
	echo   *echo.Echo
	hub    *websocket.Hub
	sched  *scheduling.Service
	logger zerolog.Logger
}

func newApp(cfg *config.Config, st *stores, clk clock.Clock, logger zerolog.Logger) *app {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, auth.DevUserHeader, auth.DevRoleHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"store":   cfg.StoreDriver,
		})
	})
	if st.pool != nil {
		e.GET("/health/db", db.HealthHandler(st.pool))
	}

	jwtCfg := auth.JWTConfig{Issuer: cfg.AuthIssuer, SigningKey: []byte(cfg.AuthSigningKey)}
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: X-Dev-User/X-Dev-Role headers are trusted, requests without identity act as ADMIN")
		apiV1.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		apiV1.Use(auth.JWTMiddleware(jwtCfg))
	}

	identitySvc := identity.NewService(st.users)
	directorySvc := directory.NewService(st.doctors)

	hub := websocket.NewHub(logger)
	cache := dashboard.NewCache(cfg.DashboardCacheTTL, clk)

	// Invalidate cached dashboards before views are told to refresh.
	var listeners []scheduling.ChangeListener
	if cache != nil {
		listeners = append(listeners, cache)
	}
	listeners = append(listeners, scheduling.NewFeed(hub, logger))
	sched := scheduling.NewService(st.appts, directorySvc, identitySvc, clk, logger, listeners...)

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	directory.NewHandler(directorySvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(sched).RegisterRoutes(apiV1)
	dashboard.NewHandler(dashboard.NewAggregator(sched, clk, cache)).RegisterRoutes(apiV1)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	return &app{echo: e, hub: hub, sched: sched, logger: logger}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.NewSystem(loc)

	st, err := openStores(ctx, cfg, clk.Now())
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.Close()
	logger.Info().Str("store", cfg.StoreDriver).Str("timezone", loc.String()).Msg("store ready")

	a := newApp(cfg, st, clk, logger)
	addr := ":" + cfg.Port

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = a.echo.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = a.echo.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
