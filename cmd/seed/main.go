package main

import (
	"context"
	"flag"
	"log"
	"time"

	"storefront/config"
	"storefront/internal/auth"
	"storefront/internal/seed"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/upload"
	"storefront/internal/util"
)

func main() {
	file := flag.String("file", "cmd/seed/catalog.yaml", "catalog YAML file")
	flag.Parse()

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	catalog, err := seed.LoadFile(*file)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	db, err := store.NewStore(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	seeder := seed.NewSeeder(db,
		service.NewAuthService(db, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)),
		service.NewProductService(db, upload.NewStorage(cfg.Upload.Dir, cfg.Upload.MaxBytes)),
	)

	result, err := seeder.Run(ctx, catalog)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seed complete: admin created=%t, products created=%d, skipped=%d",
		result.AdminCreated, result.ProductsCreated, result.ProductsSkipped)
}
