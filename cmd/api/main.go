package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"plotline/internal/app"
	"plotline/internal/attempt"
	"plotline/internal/backup"
	"plotline/internal/config"
	"plotline/internal/gitstore"
	"plotline/internal/lockfile"
	"plotline/internal/monitor"
	"plotline/internal/scripteval"
	"plotline/internal/search"
	"plotline/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	ctx := context.Background()

	for _, dir := range []string{cfg.DataDir, cfg.ScriptsDir, cfg.BackupDir, filepath.Dir(cfg.LockPath), filepath.Dir(cfg.SearchIndexPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	lock, err := lockfile.Acquire(cfg.LockPath)
	if err != nil {
		if errors.Is(err, lockfile.ErrAlreadyLocked) {
			log.Fatalf("another plotline instance holds %s", cfg.LockPath)
		}
		log.Fatalf("lock acquisition failed: %v", err)
	}
	defer lock.Release()

	gitStore := gitstore.New(cfg.DataDir)

	fts, err := search.NewSQLiteFTS(cfg.SearchIndexPath)
	if err != nil {
		log.Fatalf("search index failed: %v", err)
	}
	defer fts.Close()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, fts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	var uploader *backup.Uploader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		uploader, err = backup.NewUploader(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("backup uploader failed: %v", err)
		}
		log.Printf("Uploading backups to %s/%s", cfg.MinioEndpoint, cfg.MinioBucket)
	}
	backups := backup.NewService(cfg.DataDir, cfg.BackupDir, uploader, cfg.BackupPassphrase)

	service := app.New(cfg,
		gitStore,
		searchService,
		backups,
		scripteval.NewLua(cfg.ScriptsDir, cfg.EvalTimeout),
		attempt.NewTracker(cfg.EvalWindow, cfg.EvalMaxAttempts),
		monitor.NewService(cfg.DataDir),
	)
	if err := service.ReindexAll(ctx); err != nil {
		log.Printf("WARNING: reindex error (will retry on next restart): %v", err)
	}

	watcher, err := watch.New(cfg.DataDir, cfg.WatchDebounce, service.ReindexProject)
	if err != nil {
		log.Printf("WARNING: file watcher unavailable: %v", err)
	} else {
		defer watcher.Close()
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Plotline API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
