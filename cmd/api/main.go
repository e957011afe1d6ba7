package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngocminh/chudau-catalog/internal/application"
	appanalysis "github.com/ngocminh/chudau-catalog/internal/application/analysis"
	appcatalog "github.com/ngocminh/chudau-catalog/internal/application/catalog"
	"github.com/ngocminh/chudau-catalog/internal/config"
	domai "github.com/ngocminh/chudau-catalog/internal/domain/ai"
	domain "github.com/ngocminh/chudau-catalog/internal/domain/catalog"
	"github.com/ngocminh/chudau-catalog/internal/infra/ai/gemini"
	localdb "github.com/ngocminh/chudau-catalog/internal/infra/db/local"
	mysqldb "github.com/ngocminh/chudau-catalog/internal/infra/db/mysql"
	pgdb "github.com/ngocminh/chudau-catalog/internal/infra/db/postgres"
	"github.com/ngocminh/chudau-catalog/internal/infra/httpserver"
	minioStore "github.com/ngocminh/chudau-catalog/internal/infra/storage"
	"github.com/ngocminh/chudau-catalog/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// the embedded store always runs: it is the record/community
	// backend in local mode, and the settings store in both modes
	store, err := localdb.Open(cfg.Storage.LocalPath)
	if err != nil {
		log.Fatalf("local store open error: %v", err)
	}
	defer store.Close()

	checkers := map[string]middleware.HealthChecker{
		"local_store": middleware.CheckFunc(func(ctx context.Context) error {
			_, err := store.Load(ctx)
			return err
		}),
	}

	// select the storage gateway once; never toggled per call
	var repo domain.Repository
	switch cfg.Storage.Mode {
	case "local":
		repo = store
	case "server":
		switch cfg.Storage.Driver {
		case "postgres":
			db, err := pgdb.Connect(ctx, cfg.PostgresDSN())
			if err != nil {
				log.Fatalf("postgres connect error: %v", err)
			}
			defer db.Close()
			r := pgdb.NewCatalogRepository(db)
			if err := r.Migrate(ctx); err != nil {
				log.Fatalf("postgres migrate error: %v", err)
			}
			repo = r
			checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		default:
			db, err := mysqldb.Connect(ctx, cfg.MySQLDSN())
			if err != nil {
				log.Fatalf("mysql connect error: %v", err)
			}
			defer db.Close()
			r := mysqldb.NewCatalogRepository(db)
			if err := r.Migrate(ctx); err != nil {
				log.Fatalf("mysql migrate error: %v", err)
			}
			repo = r
			checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
		}
	default:
		log.Fatalf("unknown storage mode: %q", cfg.Storage.Mode)
	}

	// init minio (optional, community image uploads)
	var images domain.ImageStore
	if cfg.Minio.Enabled {
		s, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		images = s
	}

	// AI clients are rebuilt per request from the freshly loaded key
	newVision := func(apiKey string) domai.Vision {
		if cfg.AI.BaseURL != "" {
			return gemini.NewClientWithBaseURL(apiKey, cfg.AI.BaseURL)
		}
		return gemini.NewClient(apiKey)
	}
	newSpeech := func(apiKey string) domai.Speech {
		if cfg.AI.BaseURL != "" {
			return gemini.NewClientWithBaseURL(apiKey, cfg.AI.BaseURL)
		}
		return gemini.NewClient(apiKey)
	}

	// init services
	catalogSvc := &appcatalog.Service{Repo: repo, Images: images}
	analysisSvc := &appanalysis.Service{
		Repo:      repo,
		Settings:  store,
		NewVision: newVision,
		NewSpeech: newSpeech,
		Clock:     application.SystemClock{},
		Tracker:   appanalysis.NewTracker(),
	}

	// init router
	handler := httpserver.NewRouter(catalogSvc, analysisSvc, store, httpserver.Options{
		AnalyzePerMinute: cfg.Server.AnalyzePerMinute,
		HealthCheckers:   checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // analyze waits out the fallback chain
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s (storage mode: %s)", addr, cfg.Storage.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
