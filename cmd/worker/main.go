package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailguard/internal/aigate"
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
)

// resumeSweepInterval is how often the worker looks for approved requests
// whose dispatch has not happened yet, e.g. because the operator approved via
// the API but the resume call was never made, or the process died in between.
const resumeSweepInterval = 30 * time.Second

func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-" + uuid.NewString()
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	log.Println("Starting mailguard worker...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.RedactEnabled())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database connection
	db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Counter store, shared with the API instances for rate limits and the
	// archiver lease. Same rule as the server: configured Redis must answer.
	var store counter.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
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
		log.Printf("Redis connected: %s", cfg.Redis.Addr)
	} else {
		log.Println("Redis not configured (redis.addr empty): using in-process counters")
		store = counter.NewMemoryStore()
	}

	signer, err := dkim.LoadSigner(cfg.DKIM.Domain, cfg.DKIM.Selector, cfg.DKIM.KeyPath)
	if err != nil {
		log.Fatalf("Failed to load DKIM key: %v", err)
	}

	var tsp transport.Transport
	if cfg.SES.Enabled {
		sesTransport, err := transport.NewSESTransport(ctx, cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region, cfg.SES.ConfigurationSet)
		if err != nil {
			log.Fatalf("Failed to initialize SES transport: %v", err)
		}
		tsp = sesTransport
	} else {
		tsp = transport.NewLogTransport()
		log.Println("SES disabled: using log transport, messages are NOT delivered")
	}

	decisionRepo := postgres.NewDecisionRepo(db)
	bounces := bounce.NewService(postgres.NewBounceRepo(db))
	prefs := preference.NewService(postgres.NewPreferenceRepo(db), cfg.Unsubscribe.Secret)
	approvals := approval.NewService(postgres.NewApprovalRepo(db))
	recorder := audit.NewRecorder(decisionRepo)
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

	// Cold-storage archiver for settled decisions
	if cfg.Audit.S3Bucket != "" && cfg.Audit.DynamoDBTable != "" {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Audit.AWSRegion)}
		if profile := cfg.Audit.GetAWSProfile(); profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			log.Printf("Warning: AWS config for archiver failed: %v", err)
		} else {
			archiver := audit.NewArchiver(
				decisionRepo,
				s3.NewFromConfig(awsCfg),
				dynamodb.NewFromConfig(awsCfg),
				store,
				audit.ArchiverConfig{
					Bucket:        cfg.Audit.S3Bucket,
					Table:         cfg.Audit.DynamoDBTable,
					Interval:      cfg.Audit.ArchiveInterval(),
					BatchSize:     cfg.Audit.ArchiveBatchSize,
					RetentionDays: cfg.Audit.RetentionDays,
					InstanceID:    instanceID(),
				},
			)
			go archiver.Run(ctx)
			log.Printf("Audit archiver started (bucket: %s, table: %s)", cfg.Audit.S3Bucket, cfg.Audit.DynamoDBTable)
		}
	} else {
		log.Println("Audit archiver not configured (missing S3 bucket or DynamoDB table)")
	}

	// Daily outcome rollups to Snowflake. Re-exporting the same day is safe,
	// so the loop just keeps yesterday fresh.
	if cfg.Snowflake.Enabled {
		warehouse, err := audit.NewWarehouse(decisionRepo, audit.WarehouseConfig{
			Account:   cfg.Snowflake.Account,
			User:      cfg.Snowflake.User,
			Password:  cfg.Snowflake.Password,
			Database:  cfg.Snowflake.Database,
			Schema:    cfg.Snowflake.Schema,
			Warehouse: cfg.Snowflake.Warehouse,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize Snowflake warehouse: %v", err)
		} else {
			pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
			pingErr := warehouse.Ping(pingCtx)
			pingCancel()
			if pingErr != nil {
				log.Printf("Warning: Snowflake ping failed, exports disabled: %v", pingErr)
				warehouse.Close()
			} else {
				go func() {
					defer warehouse.Close()
					export := func() {
						yesterday := time.Now().UTC().AddDate(0, 0, -1)
						if err := warehouse.ExportDailyOutcomes(ctx, yesterday); err != nil {
							log.Printf("Warehouse export failed: %v", err)
						}
					}
					export()
					ticker := time.NewTicker(6 * time.Hour)
					defer ticker.Stop()
					for {
						select {
						case <-ctx.Done():
							return
						case <-ticker.C:
							export()
						}
					}
				}()
				log.Printf("Snowflake warehouse exports started (database: %s.%s)", cfg.Snowflake.Database, cfg.Snowflake.Schema)
			}
		}
	} else {
		log.Println("Snowflake exports not configured (disabled)")
	}

	// Resume sweeper: dispatches approved requests that have not been
	// resumed. The claim is atomic, so racing an API-triggered resume is
	// harmless; the loser sees ErrAlreadyResumed.
	go func() {
		ticker := time.NewTicker(resumeSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resumable, err := approvals.ListResumable(ctx, 50)
				if err != nil {
					log.Printf("Resume sweep: list failed: %v", err)
					continue
				}
				for _, ar := range resumable {
					d, err := gov.Resume(ctx, ar.ID)
					if errors.Is(err, approval.ErrAlreadyResumed) {
						continue
					}
					if err != nil && d.Outcome == "" {
						log.Printf("Resume sweep: %s failed: %v", ar.ID, err)
						continue
					}
					log.Printf("Resume sweep: dispatched %s (%s)", ar.ID, d.ReasonCode)
				}
			}
		}
	}()
	log.Printf("Resume sweeper started (every %s)", resumeSweepInterval)

	log.Println("Worker running...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	// Give any remaining operations time to finish
	time.Sleep(2 * time.Second)

	log.Println("Worker stopped")
}
