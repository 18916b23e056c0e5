package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/mind-engage/mindengage-readiness/internal/api/http"
	"github.com/mind-engage/mindengage-readiness/internal/assessment"
	auth "github.com/mind-engage/mindengage-readiness/internal/auth/middleware"
	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/config"
	"github.com/mind-engage/mindengage-readiness/internal/db"
	"github.com/mind-engage/mindengage-readiness/internal/metrics"
	"github.com/mind-engage/mindengage-readiness/internal/narrative"
	"github.com/mind-engage/mindengage-readiness/internal/persist"
	"github.com/mind-engage/mindengage-readiness/internal/report"
	"github.com/mind-engage/mindengage-readiness/internal/session"
	"github.com/mind-engage/mindengage-readiness/internal/storage"
	syncx "github.com/mind-engage/mindengage-readiness/internal/sync"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Catalog ---
	reg := catalog.Builtin()
	if cfg.CatalogPath != "" {
		if reg, err = catalog.Open(cfg.CatalogPath); err != nil {
			log.Fatalf("catalog: %v", err)
		}
	}
	log.Printf("INFO: [Gateway] %d configurations loaded, default %q", len(reg.List()), reg.DefaultID())

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	rows := persist.NewSQLStore(dbh, db.Driver(cfg.DBDriver))
	if cfg.PersistMigrate {
		migCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := rows.Migrate(migCtx, reg)
		cancel()
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}
	events := syncx.NewEventRepo(dbh)
	mapper := persist.NewMapper(reg, rows, events)

	// Interface values stay nil when persistence is off.
	var persister assessment.Persister
	if cfg.PersistEnabled {
		persister = mapper
	} else {
		log.Println("WARN: [Gateway] persistence disabled, results are not stored")
	}

	// --- Narrative ---
	var narrator assessment.Narrator
	if cfg.OpenAIAPIKey != "" {
		client := narrative.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		narrator = narrative.NewGenerator(client, narrative.Options{
			Temperature: cfg.NarrativeTemperature,
			MaxTokens:   cfg.NarrativeMaxTokens,
		}, cfg.NarrativeTimeout)
	} else {
		log.Println("WARN: [Gateway] OPENAI_API_KEY not set, action plans will be unavailable")
	}

	// --- Sessions ---
	sessions := session.NewInMemoryStore()
	svc := assessment.NewService(reg, sessions, persister, narrator, cfg.PersistTimeout)
	go janitor(ctx, sessions, cfg.SessionTTL)

	// --- Report archive ---
	archive, err := openArchive(ctx, cfg, dbh)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	// narrative generation bounds itself; leave room for it plus persistence
	r.Use(middleware.Timeout(cfg.NarrativeTimeout + cfg.PersistTimeout + 15*time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition", "X-Report-URL", "X-Report-Source"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.AdminPassHash == "" {
		log.Println("WARN: [Gateway] ADMIN_PASS_HASH not set, admin login disabled")
	}
	deps := api.Deps{
		Registry:           reg,
		Sessions:           sessions,
		Service:            svc,
		Ready:              readyProbe(cfg, rows),
		Results:            mapper,
		Events:             events,
		Archive:            archive,
		Auth:               auth.NewAuthService(cfg.AuthHMACSecret, 8*time.Hour),
		Admin:              auth.Credentials{User: cfg.AdminUser, PassHash: cfg.AdminPassHash},
		AllowClaimFallback: cfg.Mode == config.ModeOffline,
	}
	api.Mount(r, deps)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Printf("listening on %s (mode=%s, db=%s, blobs=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver, cfg.BlobDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: [Gateway] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: [Gateway] shutdown: %v", err)
	}
}

// readyProbe is what /readyz checks: the row store, unless nothing is written
// to it.
func readyProbe(cfg config.Config, rows api.Pinger) api.Pinger {
	if !cfg.PersistEnabled {
		return nil
	}
	return rows
}

func openArchive(ctx context.Context, cfg config.Config, dbh *sql.DB) (*report.Archive, error) {
	var blobs storage.BlobStore
	switch cfg.BlobDriver {
	case "none":
		return nil, nil
	case "minio":
		ms, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.MinioRegion,
		})
		if err != nil {
			return nil, err
		}
		blobs = ms
	default:
		fs, err := storage.NewFSStore(cfg.BlobBasePath)
		if err != nil {
			return nil, err
		}
		blobs = fs
	}
	return report.NewArchive(blobs, dbh), nil
}

// janitor drops idle sessions and keeps the active-session gauge current.
func janitor(ctx context.Context, store session.Store, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	tick := time.NewTicker(max(min(ttl/4, 10*time.Minute), time.Second))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := store.Prune(time.Now().Add(-ttl)); n > 0 {
				log.Printf("INFO: [Gateway] pruned %d idle sessions", n)
			}
			metrics.ActiveSessions.Set(float64(store.Len()))
		}
	}
}
