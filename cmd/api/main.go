package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bryanwahyu/automaton-sapaudit/internal/application"
	appai "github.com/bryanwahyu/automaton-sapaudit/internal/application/ai"
	appanalysis "github.com/bryanwahyu/automaton-sapaudit/internal/application/analysis"
	"github.com/bryanwahyu/automaton-sapaudit/internal/config"
	domai "github.com/bryanwahyu/automaton-sapaudit/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/failures"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/narrative"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/ai/openai"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/ai/prompt"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/automaton-sapaudit/internal/infra/db/mysql"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/db/postgres"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-sapaudit/internal/infra/parser"
	minioStore "github.com/bryanwahyu/automaton-sapaudit/internal/infra/storage"
	"github.com/bryanwahyu/automaton-sapaudit/internal/middleware"
)

type repos struct {
	reports    report.Repository
	failures   failures.Repository
	narratives narrative.Repository
	checkers   map[string]middleware.HealthChecker
	db         *sql.DB
}

func main() {
	// .env opsional, error diabaikan kalau file tidak ada
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}

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

	rp, err := openRepos(ctx, cfg)
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	if rp.db != nil {
		defer rp.db.Close()
	}

	// AI narrator: OpenAI kalau ada key, kalau tidak pakai narrator lokal
	var narrator domai.Client = prompt.Local{}
	if cfg.OpenAI.APIKey != "" {
		narrator = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	}

	clock := application.SystemClock{}
	svc := appanalysis.NewService(rp.reports, rp.failures, parser.Decoder{}, clock, cfg.AnalysisSettings())
	aiSvc := appai.NewService(narrator, rp.narratives, clock)

	handler := httpserver.NewRouter(svc, aiSvc, httpserver.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateCapacity: cfg.Server.RateLimit.Capacity,
		RateRefill:   cfg.Server.RateLimit.RefillPerSecond,
		Checkers:     rp.checkers,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s store=%s narrator=%s", addr, cfg.Store.Backend, narrator.Provider())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// openRepos picks the report store; narratives and failures go to the
// database when one is configured, else to memory
func openRepos(ctx context.Context, cfg *config.Config) (*repos, error) {
	rp := &repos{
		reports:    memory.NewReportRepository(),
		failures:   memory.NewFailureRepository(),
		narratives: memory.NewNarrativeRepository(),
		checkers:   map[string]middleware.HealthChecker{},
	}

	switch cfg.Store.Backend {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		rp.db = db
		rp.reports = mysqlp.NewReportRepository(db)
		rp.failures = mysqlp.NewFailureRepository(db)
		rp.narratives = mysqlp.NewNarrativeRepository(db)
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.Database.Driver, cfg.PostgresDSN())
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		rp.db = db
		rp.reports = postgres.NewReportRepository(db)
		rp.failures = postgres.NewFailureRepository(db)
		rp.narratives = postgres.NewNarrativeRepository(db)
	case "minio":
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		rp.reports = store
		rp.checkers["minio"] = store
	}

	if rp.db != nil {
		rp.checkers["database"] = &middleware.DatabaseHealthChecker{DB: rp.db}
	}
	return rp, nil
}
