package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"doc-domains-be/internal/bootstrap"
	"doc-domains-be/internal/config"
	"doc-domains-be/internal/server"
	"doc-domains-be/internal/tracer"
	"doc-domains-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	// The database is optional: without a DSN the registry runs in memory,
	// which is enough for the qdrant and memory vector backends.
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDB(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	} else {
		log.Println("DB_CONNECTION_STRING not set, using in-memory registry")
	}

	container := bootstrap.NewContainer(gormDB, cfg)

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	srv := server.New(cfg, container)

	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	_ = container.Logger.Sync()
}
