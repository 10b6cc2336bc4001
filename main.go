package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rivlab/analytics-core/db"
	"github.com/rivlab/analytics-core/engine"
	"github.com/rivlab/analytics-core/engine/druid"
	"github.com/rivlab/analytics-core/engine/mongolap"
	"github.com/rivlab/analytics-core/env"
	"github.com/rivlab/analytics-core/middleware"
	"github.com/rivlab/analytics-core/responder"
	"github.com/rivlab/analytics-core/routes"
	"github.com/rivlab/analytics-core/services"
	"github.com/rivlab/analytics-core/settings"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	responder.Logger = log

	if env.APIKey == "" {
		log.Warn("API_KEY is not set, authentication is disabled")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Register backend adapters
	registry := engine.NewRegistry()

	mongoDB, err := db.ConnectMongo(ctx, env.MongoURI, env.MongoDatabase)
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	defer mongoDB.Close(context.Background())
	if err := registry.Register(mongolap.New(mongoDB, log)); err != nil {
		log.Fatal("failed to register adapter", zap.Error(err))
	}

	if env.DruidURL != "" {
		client := db.NewDruidClient(env.DruidURL, env.DruidUsername, env.DruidPassword, env.DruidTimeout)
		if err := registry.Register(druid.New(client, log)); err != nil {
			log.Fatal("failed to register adapter", zap.Error(err))
		}
	}

	// Build the coordinator and register datasets
	coordinator := services.NewCoordinator(registry, settings.NewMemoryStore(), log)
	datasets, err := env.LoadDatasets(env.DatasetsFile)
	if err != nil {
		log.Fatal("failed to load datasets", zap.Error(err))
	}
	for _, ds := range datasets {
		if err := coordinator.RegisterDataset(ds); err != nil {
			log.Fatal("failed to register dataset", zap.Error(err))
		}
	}
	routes.Analytics = coordinator

	// Create ingest queue and start the batcher
	queue := services.NewQueue(env.QueueSize, log)
	routes.Queue = queue

	batcher := services.NewBatcher(queue, coordinator, env.BatchSize, env.FlushInterval, log)
	go batcher.Run(ctx)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggingMiddleware(log))

	r.HandleFunc("/health", routes.HealthHandler).Methods(http.MethodGet)

	// V1 API routes (with auth middleware)
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(middleware.AuthMiddleware)

	v1.HandleFunc("/datasets", routes.DatasetsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/datasets/{dataset}/rollup", routes.RollupHandler).Methods(http.MethodPost)
	v1.HandleFunc("/datasets/{dataset}/scan", routes.ScanHandler).Methods(http.MethodPost)
	v1.HandleFunc("/datasets/{dataset}/timeseries", routes.TimeseriesHandler).Methods(http.MethodPost)
	v1.HandleFunc("/datasets/{dataset}/values", routes.ValuesHandler).Methods(http.MethodGet)
	v1.HandleFunc("/datasets/{dataset}/schema", routes.SchemaHandler).Methods(http.MethodGet)
	v1.HandleFunc("/datasets/{dataset}/range", routes.RangeHandler).Methods(http.MethodGet)
	v1.HandleFunc("/datasets/{dataset}/insert", routes.IngestHandler).Methods(http.MethodPost)
	v1.HandleFunc("/datasets/{dataset}/settings", routes.GetSettingsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/datasets/{dataset}/settings", routes.PutSettingsHandler).Methods(http.MethodPut)
	v1.HandleFunc("/queue/stats", routes.QueueStatsHandler).Methods(http.MethodGet)

	// CORS Middleware
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
		AllowedHeaders:   []string{"X-Requested-With", "Content-Type", "Origin", "Authorization", "Accept", "X-Api-Key", "X-User"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	})

	server := &http.Server{
		Addr:         ":" + env.Port,
		Handler:      corsMiddleware.Handler(r),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("analytics-core running", zap.String("port", env.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutting down")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	cancel()
	queue.Close()
	time.Sleep(2 * time.Second)

	log.Info("shutdown complete")
}
