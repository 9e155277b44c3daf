package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/eventix/ticketing/internal/clock"
	"github.com/eventix/ticketing/internal/config"
	"github.com/eventix/ticketing/internal/database"
	"github.com/eventix/ticketing/internal/handler"
	"github.com/eventix/ticketing/internal/middleware"
	"github.com/eventix/ticketing/internal/queue"
	"github.com/eventix/ticketing/internal/repository"
	"github.com/eventix/ticketing/internal/router"
	"github.com/eventix/ticketing/internal/service"
	"github.com/eventix/ticketing/internal/worker"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	// Redis is optional: without it the rate limiter and response cache
	// become no-ops.
	rdb := config.NewRedisClient()

	sysClock := clock.NewSystem()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	venues := repository.NewVenueRepo(db)
	occurrences := repository.NewOccurrenceRepo(db)
	tickets := repository.NewTicketRepo(db)
	payments := repository.NewPaymentRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL)
	reservations := service.NewReservationService(tickets, sysClock, time.Duration(cfg.HoldTTLMin)*time.Minute)
	paymentSvc := service.NewPaymentService(payments, tickets, sysClock, publisher)

	// Background workers: the hold-expiry sweeper and the confirmation
	// log consumer.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := worker.NewSweeper(tickets, sysClock, time.Duration(cfg.SweepIntervalSec)*time.Second)
	go sweeper.Run(sweepCtx)
	go func() {
		if err := queue.StartTicketConsumer(cfg.AMQPURL); err != nil {
			log.Printf("ticket consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.Metrics())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	publicH := handler.NewPublicHandler(events, venues, occurrences)
	ticketH := handler.NewTicketHandler(reservations, tickets)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	organizerH := handler.NewOrganizerHandler(events, venues, occurrences)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cache)
	router.RegisterAttendee(e, ticketH, paymentH, cfg.JWTSecret)
	router.RegisterOrganizer(e, organizerH, cfg.JWTSecret)
	router.RegisterGateway(e, paymentH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
