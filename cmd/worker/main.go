package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"examprep-contest-core/internal/metrics"
	"examprep-contest-core/internal/queue"
	"examprep-contest-core/internal/tracing"
	"examprep-contest-core/internal/worker/grading"
	"examprep-contest-core/internal/worker/submission"
	"examprep-contest-core/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	workerType := os.Getenv("WORKER_TYPE")
	if workerType == "" {
		workerType = "submission"
	}

	tracingConfig := tracing.DefaultConfig()
	tracingConfig.ServiceName = "contest-" + workerType + "-worker"
	tracingConfig.ServiceVersion = "1.0.0"
	tracingShutdown := tracing.InitTracing(tracingConfig)
	if tracingShutdown != nil {
		defer func() {
			if err := tracingShutdown(context.Background()); err != nil {
				log.Printf("Error shutting down tracing: %v", err)
			}
		}()
	}

	db, err := database.NewConnection()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	q, err := queue.New()
	if err != nil {
		log.Fatal("Failed to connect to queue:", err)
	}
	defer q.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "8082"
	}
	http.Handle("/metrics", metrics.MetricsHandler())
	go func() {
		log.Printf("Metrics server starting on port %s", metricsPort)
		if err := http.ListenAndServe(":"+metricsPort, nil); err != nil {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Run blocks until ctx is cancelled by a shutdown signal.
	switch workerType {
	case "submission":
		concurrency := 4
		if v := os.Getenv("SUBMISSION_WORKER_CONCURRENCY"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				concurrency = n
			}
		}
		log.Printf("Starting %d submission worker(s)", concurrency)
		submission.Pool(ctx, q, db.Pool, submission.DefaultConfig(), concurrency)
	case "grading":
		log.Println("Starting grading worker")
		w := grading.New(q, db.Pool, grading.DefaultConfig())
		w.Run(ctx)
	default:
		log.Fatalf("unknown WORKER_TYPE %q, want \"submission\" or \"grading\"", workerType)
	}

	log.Printf("%s worker stopped", workerType)
}
