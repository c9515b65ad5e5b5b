package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/sports-facility-booking/internal/auth"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/config"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/handler"
	"github.com/iliyamo/sports-facility-booking/internal/metrics"
	"github.com/iliyamo/sports-facility-booking/internal/middleware"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
	"github.com/iliyamo/sports-facility-booking/internal/router"
	"github.com/iliyamo/sports-facility-booking/internal/service"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database unreachable")
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("schema applied")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "booking"))
	m := metrics.New(registry)

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewAMQPPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		events = pub
	}

	gate := authz.NewGate(repository.NewRoleRepo(db, log), repository.NewLookups(db), log, m, events)
	deps := service.Deps{DB: db, Gate: gate, Log: log, Metrics: m, Events: events}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLog(log))
	router.RegisterRoutes(e, db, m.Handler())

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}
	v1 := []echo.MiddlewareFunc{
		middleware.JWTAuth(auth.NewVerifier(cfg.JWTSecret), log),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	}
	router.RegisterBookings(e,
		handler.NewBookingHandler(service.NewBookingService(deps), log),
		handler.NewRosterHandler(service.NewRosterService(deps), log),
		handler.NewRecordingHandler(service.NewRecordingService(deps), log),
		v1...)
	router.RegisterClubs(e,
		handler.NewClubHandler(service.NewClubService(deps), service.NewTeamService(deps), service.NewPersonService(deps), log),
		v1...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if cfg.EventsEnabled {
		g.Go(func() error {
			err := queue.StartAuditConsumer(gctx, cfg.AMQPURL, log)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("shutdown complete")
}
