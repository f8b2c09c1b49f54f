// utils/archive.go
package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"habit-reward-system/models"
)

// LedgerArchiver exports closed-month reward ledger slices to R2 as
// JSON-lines objects. The ledger rows themselves are never deleted; the
// export is for offline analytics.
type LedgerArchiver struct {
	client *s3.Client
	bucket string
}

func NewLedgerArchiver(accountID, accessKeyID, accessKeySecret, bucket string) (*LedgerArchiver, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID, accessKeySecret, "",
		)),
		config.WithEndpointResolver(aws.EndpointResolverFunc(
			func(service, region string) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID),
				}, nil
			}),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}
	return &LedgerArchiver{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// ArchiveMonth writes every ledger entry created inside the given month to
// ledger/YYYY-MM.jsonl. Re-running the job overwrites the object with the
// same content.
func (a *LedgerArchiver) ArchiveMonth(ctx context.Context, db *gorm.DB, month time.Time) error {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var entries []models.RewardLedgerEntry
	if err := db.Where("created_at >= ? AND created_at < ?", start, end).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return fmt.Errorf("failed to load ledger slice: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode ledger entry %s: %w", e.ID, err)
		}
	}

	key := fmt.Sprintf("ledger/%s.jsonl", start.Format("2006-01"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        buf,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload ledger archive: %w", err)
	}

	log.WithFields(log.Fields{
		"key":     key,
		"entries": len(entries),
	}).Info("ledger archive uploaded")
	return nil
}
