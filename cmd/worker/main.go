// Command main runs the background task worker on its own.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sociable/internal/bootstrap"
	"sociable/internal/config"
	"sociable/internal/middleware"
	"sociable/internal/repository"
	"sociable/internal/tasks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(cfg.Env, os.Stdout)

	// The API process owns the schema.
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipSchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	if rdb == nil {
		log.Fatal("Redis is required to run the task worker")
	}
	defer func() {
		_ = rdb.Close()
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := tasks.NewWorker(rdb, repository.NewPostRepository(db), repository.NewProfileRepository(db))
	if err := worker.Run(ctx); err != nil {
		log.Printf("Worker exited: %v", err)
	}
}
