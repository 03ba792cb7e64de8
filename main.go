package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"showlog/api"
	"showlog/config"
	"showlog/handlers"
	"showlog/internal/localstore"
	"showlog/services/catalog"
	"showlog/services/library"
	"showlog/services/syncer"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("showlog starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("SHOWLOG_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Local persistence: one document slot inside the storage directory
	store, err := localstore.New(afero.NewOsFs(), settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to init local store: %v", err)
	}

	librarySvc := library.NewService(store)

	// Optional cloud mirror; no endpoint means fully local operation
	syncSvc, err := syncer.NewService(settings.Storage.Directory, settings.Sync.Endpoint, settings.Sync.APIKey)
	if err != nil {
		log.Fatalf("failed to init sync adapter: %v", err)
	}
	librarySvc.SetPusher(syncSvc)
	if syncSvc.Configured() {
		if identity, ok := syncSvc.Identity(); ok {
			log.Printf("sync enabled, signed in as %s", identity)
		} else {
			log.Printf("sync enabled, not signed in")
		}
	}

	catalogClient := catalog.NewClient(settings.Catalog.BaseURL, nil)
	debouncer := catalog.NewDebouncer(catalogClient, time.Duration(settings.Catalog.SearchDebounceMs)*time.Millisecond)

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewSearchHandler(debouncer),
		handlers.NewLibraryHandler(librarySvc, catalogClient),
		handlers.NewTransferHandler(librarySvc),
		handlers.NewSyncHandler(syncSvc, librarySvc),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Drain in-flight sync pushes so the last mutation reaches the mirror
	syncSvc.Wait()

	log.Println("Shutdown complete")
}
