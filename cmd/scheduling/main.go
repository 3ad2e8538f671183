package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	consulapi "github.com/hashicorp/consul/api"

	"github.com/careslot/scheduling/internal/api"
	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/config"
	"github.com/careslot/scheduling/internal/database"
	"github.com/careslot/scheduling/internal/events"
	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/middleware"
	"github.com/careslot/scheduling/internal/repository"
	"github.com/careslot/scheduling/internal/schedule"
	"github.com/careslot/scheduling/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, os.Stdout)
	log.Info("Starting scheduling service", map[string]interface{}{
		"port": cfg.Server.Port,
	})

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db)
	if err != nil {
		log.Fatal("Failed to load migrations", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to run migrations", map[string]interface{}{
			"error": err.Error(),
		})
	}

	availabilities := repository.NewAvailabilityRepository(db)
	slots := repository.NewSlotRepository(db)
	profiles := repository.NewProfileRepository(db)

	caps := schedule.Caps{
		GenerationWindowDays: cfg.Engine.GenerationWindowDays,
		AdvanceHorizonDays:   cfg.Engine.AdvanceHorizonDays,
		OverlapSampleDays:    cfg.Engine.OverlapSampleDays,
		WeekdayScanDays:      cfg.Engine.WeekdayScanDays,
		DefaultSlotMinutes:   cfg.Engine.DefaultSlotMinutes,
	}
	engine := schedule.NewEngine(availabilities, slots, profiles, calendar.System(), caps, log)

	var publisher *events.Publisher
	var eventSink schedule.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err = events.NewPublisher(cfg.NATS.URL, log)
		if err != nil {
			log.Fatal("Failed to create NATS publisher", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer publisher.Close()
		eventSink = publisher
	}

	svc := schedule.NewService(engine, availabilities, slots, profiles, eventSink, calendar.System(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	maintainer := worker.New(svc, log, cfg.Worker.Schedule, cfg.Worker.RunOnStart)
	if err := maintainer.Start(ctx); err != nil {
		log.Fatal("Failed to start maintenance worker", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var consulClient *consulapi.Client
	if cfg.Consul.Enabled {
		consulClient, err = registerWithConsul(cfg, log)
		if err != nil {
			log.Warn("Failed to register with Consul", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	handler := api.New(svc, db, log)
	router := mux.NewRouter()
	router.Use(middleware.Logging(log))
	router.Use(middleware.Recovery(log))
	handler.RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	maintainer.Stop()
	cancel()

	if consulClient != nil {
		if err := consulClient.Agent().ServiceDeregister(cfg.Consul.ServiceID); err != nil {
			log.Error("Failed to deregister from Consul", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Server stopped", nil)
}

func registerWithConsul(cfg *config.Config, log *logger.Logger) (*consulapi.Client, error) {
	consulCfg := consulapi.DefaultConfig()
	consulCfg.Address = cfg.Consul.Address

	client, err := consulapi.NewClient(consulCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	registration := &consulapi.AgentServiceRegistration{
		ID:   cfg.Consul.ServiceID,
		Name: cfg.Consul.ServiceName,
		Port: cfg.Server.Port,
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port),
			Interval:                       cfg.Consul.CheckInterval,
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: cfg.Consul.DeregisterCriticalServiceAfter,
		},
		Tags: []string{"scheduling", "availability", "v1"},
	}

	if err := client.Agent().ServiceRegister(registration); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	log.Info("Registered with Consul", map[string]interface{}{
		"service_id": cfg.Consul.ServiceID,
		"address":    cfg.Consul.Address,
	})

	return client, nil
}
