package main

import (
	"context"
	"log"
	"time"

	"github.com/nassert93-sketch/PharmaConnect/config"
	"github.com/nassert93-sketch/PharmaConnect/internal/api/routes"
	"github.com/nassert93-sketch/PharmaConnect/internal/auth"
	"github.com/nassert93-sketch/PharmaConnect/internal/database"
	"github.com/nassert93-sketch/PharmaConnect/internal/models"
	"github.com/nassert93-sketch/PharmaConnect/internal/routing"
	"github.com/nassert93-sketch/PharmaConnect/internal/s3"
	"github.com/nassert93-sketch/PharmaConnect/internal/socket"
	"github.com/nassert93-sketch/PharmaConnect/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if cfg.JWT.Secret != "" {
		auth.JwtSecret = []byte(cfg.JWT.Secret)
	}

	client, db, err := database.Connect(cfg.Mongo.URI, cfg.Mongo.DBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := database.Seed(context.Background(), db); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	orderStore := store.NewOrderStore(db)
	directory := store.NewDirectory(db)
	policy := store.NewPolicy(db)

	if err := policy.EnsureRoutingSettings(context.Background(), models.RoutingSettings{
		Mode:           models.RoutingMode(cfg.Routing.DefaultMode),
		BroadcastCount: cfg.Routing.BroadcastCount,
	}); err != nil {
		log.Fatalf("Failed to initialize routing settings: %v", err)
	}

	// Prescription uploads are optional; without a bucket the API still runs
	// and orders carry no image.
	var s3Uploader *s3.Uploader
	if cfg.S3.Bucket != "" {
		s3Uploader, err = s3.NewUploader(cfg.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 uploader: %v", err)
		}
	} else {
		log.Println("S3 bucket not configured, prescription uploads disabled")
	}

	wsHub := socket.NewHub()
	notifier := socket.NewNotifier(wsHub)

	window := time.Duration(cfg.Routing.ResponseWindowMinutes) * time.Minute
	engine := routing.NewEngine(orderStore, directory, policy, notifier, window)

	// The deadline sweep runs in every API process; all of its writes are
	// conditional so overlapping sweeps are harmless.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweep := routing.NewSweep(engine, time.Duration(cfg.Routing.SweepIntervalSeconds)*time.Second)
	go sweep.Run(sweepCtx)

	router := routes.SetupRouter(engine, orderStore, directory, policy, cfg, db, s3Uploader, wsHub)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
