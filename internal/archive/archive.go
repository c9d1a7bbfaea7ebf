// Package archive uploads each rendered print job and its parsed order to
// S3 so a lost ticket can be reprinted or inspected later.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/receipt"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes print jobs under <prefix>/<yyyy-mm-dd>/<token>.{bin,json}.
type Store struct {
	client putter
	bucket string
	prefix string
}

// New loads the default AWS configuration for region and returns a store
// for bucket.
func New(ctx context.Context, region, bucket, prefix string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}
	return &Store{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Key returns the object key, without extension, for a printed order.
func (s *Store) Key(p order.Printed) string {
	day := p.QueuedAt
	if day.IsZero() {
		day = time.Now().UTC()
	}
	return path.Join(s.prefix, day.UTC().Format("2006-01-02"), p.Token)
}

// Record uploads the job bytes and a JSON description of the order.
func (s *Store) Record(ctx context.Context, p order.Printed) error {
	key := s.Key(p)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key + ".bin"),
		Body:        bytes.NewReader(p.Data),
		ContentType: aws.String(receipt.MediaType),
	})
	if err != nil {
		return fmt.Errorf("archive: upload %s.bin: %w", key, err)
	}

	meta, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", p.Token, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key + ".json"),
		Body:        bytes.NewReader(meta),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: upload %s.json: %w", key, err)
	}
	return nil
}
