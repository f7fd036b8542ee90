package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkkkikiki/crm/internal/api"
	"github.com/kkkkikiki/crm/internal/config"
	"github.com/kkkkikiki/crm/internal/database"
	"github.com/kkkkikiki/crm/internal/service"
	"github.com/kkkkikiki/crm/internal/suggest"
)

func main() {
	ctx := context.Background()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting crm service in %s mode", cfg.App.Environment)

	// Initialize database connections
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connections: %v", err)
		}
	}()

	if cfg.App.SeedDemoData {
		if err := database.SeedDemoCustomers(db.Postgres); err != nil {
			log.Printf("Demo data seeding failed: %v", err)
		}
	}

	// Build services and the API surface
	vendor := service.NewVendorSimulator(db.Postgres, cfg.Vendor, cfg.Vendor.GetReceiptURL(cfg.Server.Port))
	suggester := suggest.New(cfg.Suggest)
	apiServer := api.New(db.Postgres, vendor, suggester)

	// Create HTTP mux
	mux := http.NewServeMux()

	// Mount the API router
	mux.Handle("/api/", apiServer.Routes())

	// Add health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		hostname, _ := os.Hostname()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"crm","hostname":"` + hostname + `"}`))
	})

	// Add database health check endpoint
	mux.HandleFunc("/health/db", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Postgres.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"error","message":"postgres unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","postgres":"connected"}`))
	})

	// Add Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Create server with configuration optimized for high concurrency
	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second, // Keep connections alive longer
		MaxHeaderBytes: 1 << 20,           // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(mux, &http2.Server{
			MaxConcurrentStreams: 1000,
		}),
	}

	// Optional keep-alive pinger for free-tier hosting
	stopKeepAlive := make(chan struct{})
	if cfg.App.KeepAliveURL != "" {
		go keepAlive(cfg.App.KeepAliveURL, cfg.App.GetKeepAliveInterval(), stopKeepAlive)
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting crm service on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	close(stopKeepAlive)

	// Let in-flight vendor receipts land before closing up
	vendor.WaitForReceipts()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}

// keepAlive pings the configured URL on an interval so free hosting
// tiers do not idle the service out
func keepAlive(url string, interval time.Duration, stop <-chan struct{}) {
	client := &http.Client{Timeout: 15 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				log.Printf("Keep-alive ping failed: %v", err)
				continue
			}
			resp.Body.Close()
		}
	}
}
