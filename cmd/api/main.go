package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/pzse-platform/iebc-backend/config"
	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/billing"
	"github.com/pzse-platform/iebc-backend/internal/bootstrap"
	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/db"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/jobs"
	"github.com/pzse-platform/iebc-backend/internal/letters"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/repository"
	"github.com/pzse-platform/iebc-backend/internal/projects/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	authClient, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}

	objectStore, err := letters.NewMinioStore(cfg.Storage)
	if err != nil {
		log.Fatalf("object store: %v", err)
	}

	templates, err := letters.LoadTemplates(cfg.PDF.TemplateDir)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	signer, err := letters.NewSigner(cfg.PDF)
	if err != nil {
		log.Fatalf("pdf signer: %v", err)
	}
	renderer := letters.NewWkhtmlRenderer(cfg.PDF)
	generator := letters.NewGenerator(templates, renderer, objectStore)
	scratch := letters.NewScratch(cfg.PDF.ScratchDir)

	store := repository.NewStore(database)
	rules, err := store.LoadRuleset(ctx)
	if err != nil {
		log.Fatalf("compliance rules: %v", err)
	}

	resolver := lookup.NewResolver(lookup.NewClient(cfg.Lookup), lookup.NewMeteoCache(database))

	svc := service.New(
		store,
		compliance.New(rules),
		billing.NewGate(database),
		resolver,
		generator,
		letters.NewStampStore(database),
		signer,
		objectStore,
		events.NewPublisher(rdb),
		scratch,
	)

	scheduler := jobs.NewScheduler(scratch)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "iebc-backend",
		Version:     cfg.App.Version,
		DB:          database,
		Redis:       rdb,
		AuthClient:  authClient,
		Projects:    svc,
	})

	log.Printf("listening on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
