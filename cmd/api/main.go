package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"achievio.org/internal/achievements"
	"achievio.org/internal/auth"
	"achievio.org/internal/config"
	"achievio.org/internal/httpapi"
	"achievio.org/internal/obs"
	"achievio.org/internal/store/pg"
	"achievio.org/internal/stream"
	"achievio.org/internal/users"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Postgres when a DSN is set; in-memory stores otherwise so the
	// binary stays runnable without infrastructure.
	var (
		db         *sql.DB
		userStore  users.Store
		tokenStore auth.TokenStore
		achStore   achievements.Store
	)
	if cfg.PGDSN != "" {
		st, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := st.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		db = st.DB()
		userStore = st.Users()
		tokenStore = st.Tokens()
		achStore = st.Achievements()
	} else {
		mem := users.NewMemoryStore()
		userStore = mem
		tokenStore = auth.NewMemoryStore()
		achStore = achievements.NewMemoryStore(mem)
		log.Print("ACHIEVIO_PG_DSN not set, using in-memory stores")
	}

	authSvc, err := auth.NewService(userStore, tokenStore, cfg.AccessSecret, cfg.RefreshSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
		auth.WithHasherCost(cfg.BcryptCost),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(authSvc, userStore, achStore, httpapi.Options{
		Version:     version,
		ReadyProbe:  httpapi.ReadyProbe{DB: db},
		Stream:      stream.New(),
		CORSOrigins: cfg.CORSOrigins,
		RateRPS:     cfg.RateLimitRPS,
		RateBurst:   cfg.RateLimitBurst,
		HasherCost:  cfg.BcryptCost,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting achievio-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
