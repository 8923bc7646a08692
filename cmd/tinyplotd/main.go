// Package main is the entry point for the tinyplot figure server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/image/font/opentype"

	"github.com/lighttransport/tinyplotlib/internal/api"
	"github.com/lighttransport/tinyplotlib/internal/cache"
	"github.com/lighttransport/tinyplotlib/internal/config"
	"github.com/lighttransport/tinyplotlib/internal/data/zarr"
	"github.com/lighttransport/tinyplotlib/internal/render"
	"github.com/lighttransport/tinyplotlib/internal/service"
	"github.com/lighttransport/tinyplotlib/pkg/plot"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config/tinyplot.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting tinyplot server on port %d", cfg.Server.Port)

	ctx := context.Background()

	// Initialize cache manager (shared across all datasets)
	cacheManager, err := cache.NewManager(cache.Config{
		FigureCacheSizeMB: cfg.Cache.FigureSizeMB,
		FigureTTL:         time.Duration(cfg.Cache.FigureTTLMinutes) * time.Minute,
		MatrixEntries:     cfg.Cache.MatrixEntries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheManager.Close()

	// Parse the font once; every figure shares it.
	var font *opentype.Font
	if cfg.Render.FontPath != "" {
		font, err = render.LoadFont(cfg.Render.FontPath)
	} else {
		font, err = render.DefaultFont()
	}
	if err != nil {
		log.Fatalf("Failed to load font: %v", err)
	}
	plotConfig := basePlotConfig(cfg.Render, font)

	// Initialize dataset registry
	datasetIDs := cfg.Data.DatasetIDs()
	registry := api.NewDatasetRegistry(cfg.Data.DefaultDataset, cfg.Server.Title)

	log.Printf("Initializing %d dataset(s), default: %s", len(datasetIDs), cfg.Data.DefaultDataset)

	for _, datasetID := range datasetIDs {
		ds := cfg.Data.Datasets[datasetID]

		zarrReader, err := zarr.NewReader(ds.ZarrPath)
		if err != nil {
			log.Fatalf("Failed to initialize Zarr reader for dataset %q: %v", datasetID, err)
		}
		defer zarrReader.Close()

		arrays, err := zarrReader.Arrays()
		if err != nil {
			log.Fatalf("Failed to list arrays for dataset %q: %v", datasetID, err)
		}
		log.Printf("  [%s] Loaded from: %s", datasetID, ds.ZarrPath)
		log.Printf("    Arrays: %d", len(arrays))

		err = registry.Register(datasetID, service.NewFigureService(service.FigureServiceConfig{
			DatasetID:  datasetID,
			ZarrReader: zarrReader,
			Cache:      cacheManager,
			Plot:       plotConfig,
		}))
		if err != nil {
			log.Fatalf("Failed to register dataset %q: %v", datasetID, err)
		}
	}

	// Set up HTTP router
	router := api.NewRouter(api.RouterConfig{
		Registry:    registry,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on http://localhost:%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func basePlotConfig(rc config.RenderConfig, font *opentype.Font) plot.Config {
	margin := rc.Margin
	return plot.Config{
		Width:         rc.Width,
		Height:        rc.Height,
		OffsetX:       &margin,
		OffsetY:       &margin,
		Scale:         rc.Scale,
		Supersample:   rc.Supersample,
		Antialias:     rc.Antialias,
		Colormap:      rc.DefaultColormap,
		ColorbarTicks: rc.ColorbarTicks,
		JPEGQuality:   rc.JPEGQuality,
		Font:          font,
	}
}
