package main

import (
	"context"
	"fmt"
	"log"
	"time"

	mongoMigration "helipad/internal/migrations/mongo"
	"helipad/internal/settings"
	"helipad/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job", "database", cfg.MongoDatabaseName)
	defer cfg.GracefulShutdown()
	migrateMongo(ctx, cfg)
	fmt.Println("Migration completed successfully.")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	seed := settings.FromConfig(cfg)
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, seed, cfg.Log); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}
