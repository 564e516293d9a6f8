package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/mailguard/internal/counter"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// archiveLeaseKey elects one archiver per tick across instances.
const archiveLeaseKey = "lease:audit:archiver"

// objectPutter is the slice of the S3 API the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// itemPutter is the slice of the DynamoDB API the archiver uses.
type itemPutter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// decisionItem is the DynamoDB row for one archived decision.
type decisionItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"Data"`
	Timestamp string `dynamodbav:"Timestamp"`
	TTL       int64  `dynamodbav:"TTL,omitempty"`
}

// ArchiverConfig controls the archive loop.
type ArchiverConfig struct {
	Bucket        string
	Table         string
	Interval      time.Duration
	BatchSize     int
	RetentionDays int
	InstanceID    string
}

// Archiver ships settled decisions to S3 and DynamoDB on a timer. When
// several instances run, a short lease in the counter store elects one
// archiver per tick. Uploads are keyed by decision ID, so a pass that
// dies between upload and mark simply re-uploads the same objects.
type Archiver struct {
	repo   Repository
	s3     objectPutter
	dynamo itemPutter
	leases counter.Store
	cfg    ArchiverConfig
	log    *logger.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver. Zero config values fall back to
// 5m interval, 500 batch size, 90 day retention.
func NewArchiver(repo Repository, s3c objectPutter, dyn itemPutter, leases counter.Store, cfg ArchiverConfig) *Archiver {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	return &Archiver{
		repo:   repo,
		s3:     s3c,
		dynamo: dyn,
		leases: leases,
		cfg:    cfg,
		log:    logger.Component("Archiver"),
		now:    time.Now,
	}
}

// Run archives on every tick until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.log.Info("archiver started", "interval", a.cfg.Interval.String(), "batch_size", a.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			a.log.Info("archiver stopped")
			return
		case <-ticker.C:
			if err := a.RunOnce(ctx); err != nil {
				a.log.Error("archive pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single archive pass. Returns nil without doing work
// when another instance holds the lease or there is nothing to archive.
func (a *Archiver) RunOnce(ctx context.Context) error {
	won, err := a.leases.SetNX(ctx, archiveLeaseKey, a.cfg.InstanceID, a.cfg.Interval*9/10)
	if err != nil {
		return fmt.Errorf("acquire archive lease: %w", err)
	}
	if !won {
		return nil
	}

	decisions, err := a.repo.ListUnarchived(ctx, a.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list unarchived decisions: %w", err)
	}
	if len(decisions) == 0 {
		return nil
	}

	now := a.now().UTC()
	ids := make([]string, 0, len(decisions))
	var archiveErr error
	for i := range decisions {
		if err := a.archiveOne(ctx, &decisions[i], now); err != nil {
			// leave the rest for the next pass
			archiveErr = err
			break
		}
		ids = append(ids, decisions[i].ID)
	}

	if len(ids) > 0 {
		if err := a.repo.MarkArchived(ctx, ids, now); err != nil {
			return fmt.Errorf("mark archived: %w", err)
		}
		a.log.Info("archived decisions", "count", len(ids))
	}
	if archiveErr != nil {
		return fmt.Errorf("archive decision: %w", archiveErr)
	}
	return nil
}

func (a *Archiver) archiveOne(ctx context.Context, d *domain.SendDecision, now time.Time) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	key := fmt.Sprintf("audit/decisions/%s/%s.json", d.CreatedAt.UTC().Format("2006-01-02"), d.ID)
	if _, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("put decision to S3: %w", err)
	}

	item := decisionItem{
		PK:        "DECISION#" + d.TenantID,
		SK:        d.CreatedAt.UTC().Format(time.RFC3339) + "#" + d.ID,
		Data:      string(payload),
		Timestamp: now.Format(time.RFC3339),
		TTL:       now.Add(time.Duration(a.cfg.RetentionDays) * 24 * time.Hour).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal dynamo item: %w", err)
	}
	if _, err := a.dynamo.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.cfg.Table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put decision to DynamoDB: %w", err)
	}
	return nil
}
