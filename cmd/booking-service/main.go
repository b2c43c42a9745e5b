package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/inventory"
	inventoryapi "ms-booking/internal/inventory/api"
	inventorydb "ms-booking/internal/inventory/db"
	inventoryredis "ms-booking/internal/inventory/redis"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/notify"
	"ms-booking/internal/order"
	orderapi "ms-booking/internal/order/api"
	orderdb "ms-booking/internal/order/db"
	"ms-booking/internal/tickets"
	ticketsapi "ms-booking/internal/tickets/api"
	ticketsdb "ms-booking/internal/tickets/db"
	"ms-booking/internal/tickets/qr"
)

// logPublisher stands in for Kafka when it is disabled, so notification
// fan-out still drains locally.
type logPublisher struct {
	log *logger.Logger
}

func (p *logPublisher) Publish(topic string, key string, value []byte) error {
	p.log.LogKafka("DISABLED", topic, string(value))
	return nil
}

func (p *logPublisher) Close() error { return nil }

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewLogger()
	defer log.Close()

	ctx := context.Background()

	// --- PostgreSQL ---
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open Postgres: %v", err))
	}
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to Postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	log.Info("DATABASE", "Postgres connection successful")

	migrationOpts := migrations.DefaultOptions()
	if migrationOpts.AutoMigrate {
		runner, err := migrations.NewRunner(bunDB, migrationOpts)
		if err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Failed to prepare migrations: %v", err))
		}
		if err := runner.Up(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("DATABASE", "Schema is up to date")
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis: %v", err))
	}
	defer redisClient.Close()
	log.Info("REDIS", "Redis connection successful")

	// --- Kafka / notifications ---
	var publisher notify.Publisher
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{
			cfg.Kafka.Topics.OrderStatus,
			cfg.Kafka.Topics.TicketStatus,
			cfg.Kafka.Topics.Notifications,
		}); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Could not ensure topics: %v", err))
		}
		publisher = kafka.NewProducer(cfg.Kafka.Brokers)
	} else {
		log.Warn("KAFKA", "Kafka disabled, notifications logged locally")
		publisher = &logPublisher{log: log}
	}
	defer publisher.Close()

	dispatcher := notify.NewDispatcher(publisher, cfg.Kafka.Topics.Notifications, cfg.Booking.NotifyBuffer, log)
	defer dispatcher.Close()

	// --- Services ---
	inventoryService := inventory.NewService(
		&inventorydb.DB{Bun: bunDB},
		inventoryredis.NewLock(redisClient, cfg.Redis.LockTTL),
		log,
	)
	ticketService := tickets.NewService(
		&ticketsdb.DB{Bun: bunDB},
		inventoryService,
		inventoryService,
		dispatcher,
		qr.NewQRGenerator(cfg.Booking.QRSecret),
		log,
	)
	orderService := order.NewService(
		&orderdb.DB{Bun: bunDB},
		inventoryService,
		ticketService,
		dispatcher,
		log,
		cfg.Booking.ReserveRetries,
	)

	orderHandler := orderapi.NewHandler(orderService, log)
	ticketHandler := ticketsapi.NewHandler(ticketService, log)
	inventoryHandler := inventoryapi.NewHandler(inventoryService, log)

	// --- Router ---
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", orderHandler.CreateOrder)
		r.Get("/orders/{orderID}", orderHandler.GetOrder)
		r.Post("/orders/{orderID}/payment", orderHandler.FinalizeOrder)
		r.Get("/users/{userID}/orders", orderHandler.GetUserOrders)
		r.Get("/users/{userID}/tickets", ticketHandler.GetTicketsByUser)

		r.Get("/tickets/{ticketID}/validate", ticketHandler.ValidateTicket)
		r.Post("/tickets/{ticketID}/use", ticketHandler.UseTicket)
		r.Post("/tickets/{ticketID}/cancel", ticketHandler.CancelTicket)
		r.Get("/orders/{orderID}/tickets", ticketHandler.GetTicketsByOrder)

		r.Get("/ticket-types/{ticketTypeID}/availability", inventoryHandler.CheckAvailability)
		r.Patch("/ticket-types/{ticketTypeID}", inventoryHandler.UpdateTicketType)
		r.Post("/events/{eventID}/ticket-types", inventoryHandler.CreateTicketType)
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("SERVER", "Shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("SERVER", fmt.Sprintf("Forced shutdown: %v", err))
	}
	log.Info("SERVER", "Booking service shutdown complete")
}
