package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/mailguard/internal/aigate"
	"github.com/ignite/mailguard/internal/api"
	"github.com/ignite/mailguard/internal/audit"
	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/counter"
	"github.com/ignite/mailguard/internal/dkim"
	"github.com/ignite/mailguard/internal/governor"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/repository/postgres"
	"github.com/ignite/mailguard/internal/service/approval"
	"github.com/ignite/mailguard/internal/service/bounce"
	"github.com/ignite/mailguard/internal/service/preference"
	"github.com/ignite/mailguard/internal/spamcheck"
	"github.com/ignite/mailguard/internal/transport"
	"github.com/ignite/mailguard/internal/warmup"

	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	// Pre-flight check: verify the target port is available
	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL at %s", extractHost(cfg.Database.URL))
	db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("PostgreSQL connected")

	// Shared rate-limit counters live in Redis. A configured-but-unreachable
	// Redis is fatal: falling back to per-instance counters would silently
	// break the global caps. Leaving redis.addr empty opts into in-process
	// counters for single-instance and development setups.
	var store counter.Store
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.Redis.OpTimeout(),
			WriteTimeout: cfg.Redis.OpTimeout(),
		})
		pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			log.Fatalf("Redis connection failed (%s): %v", cfg.Redis.Addr, err)
		}
		defer rdb.Close()
		store = counter.NewRedisStore(rdb)
		log.Printf("Redis connected: %s (shared rate-limit counters enabled)", cfg.Redis.Addr)
	} else {
		log.Println("Redis not configured (redis.addr empty): using in-process counters")
		store = counter.NewMemoryStore()
	}

	// Load DKIM key material. A missing key degrades to unsigned sending
	// rather than refusing to start.
	signer, err := dkim.LoadSigner(cfg.DKIM.Domain, cfg.DKIM.Selector, cfg.DKIM.KeyPath)
	if err != nil {
		log.Fatalf("Failed to load DKIM key: %v", err)
	}
	if signer.Enabled() {
		log.Printf("DKIM signing enabled (d=%s, s=%s)", signer.Domain(), signer.Selector())
	} else {
		log.Printf("Warning: no DKIM key at %q: mail will go out unsigned", cfg.DKIM.KeyPath)
	}

	// Initialize the delivery transport
	var tsp transport.Transport
	if cfg.SES.Enabled {
		sesTransport, err := transport.NewSESTransport(ctx, cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region, cfg.SES.ConfigurationSet)
		if err != nil {
			log.Fatalf("Failed to initialize SES transport: %v", err)
		}
		tsp = sesTransport
		log.Printf("SES transport initialized (region: %s)", cfg.SES.Region)
	} else {
		tsp = transport.NewLogTransport()
		log.Println("SES disabled: using log transport, messages are NOT delivered")
	}

	// Wire services over the PostgreSQL repositories
	bounces := bounce.NewService(postgres.NewBounceRepo(db))
	prefs := preference.NewService(postgres.NewPreferenceRepo(db), cfg.Unsubscribe.Secret)
	approvals := approval.NewService(postgres.NewApprovalRepo(db))
	recorder := audit.NewRecorder(postgres.NewDecisionRepo(db))
	scheduler := warmup.NewScheduler(postgres.NewWarmupStateRepo(db))

	gov := governor.New(governor.Deps{
		Warmup:    scheduler,
		Limiter:   ratelimit.New(store),
		Bounces:   bounces,
		Prefs:     prefs,
		Analyzer:  spamcheck.NewAnalyzer(),
		Gate:      aigate.NewGate(cfg.AIGate.AllowedLinkDomains),
		Signer:    signer,
		Approvals: approvals,
		Audit:     recorder,
		Transport: tsp,
	}, governor.Config{
		WarmupIdentity:     cfg.Pipeline.WarmupIdentity,
		FromAddress:        cfg.Pipeline.FromAddress,
		UnsubscribeBaseURL: cfg.Unsubscribe.BaseURL,
	})

	handlers := api.NewHandlers(gov, bounces, prefs, approvals, recorder, scheduler, cfg.Pipeline.WarmupIdentity)
	server := api.NewServer(cfg.Server, handlers)
	server.RegisterHealthRoutes(api.NewHealthChecker(db, rdb))

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr())
		if err := server.ListenAndServe(cfg.Server.Addr()); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
