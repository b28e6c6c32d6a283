package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"goally/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// S3SnapshotStore keeps each owner's snapshot as snapshots/<owner>.json.
type S3SnapshotStore struct {
	client *s3.Client
	bucket string
}

func NewS3SnapshotStore(ctx context.Context, cfg S3Config) (*S3SnapshotStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SnapshotStoreWithClient(client, cfg.Bucket), nil
}

func NewS3SnapshotStoreWithClient(client *s3.Client, bucket string) *S3SnapshotStore {
	return &S3SnapshotStore{client: client, bucket: bucket}
}

func (s *S3SnapshotStore) For(owner string) SnapshotRepository {
	return &s3SnapshotRepository{store: s, key: "snapshots/" + url.PathEscape(owner) + ".json"}
}

type s3SnapshotRepository struct {
	store *S3SnapshotStore
	key   string
}

func (r *s3SnapshotRepository) Load(ctx context.Context) (models.Snapshot, bool, error) {
	out, err := r.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.store.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		var re *awshttp.ResponseError
		if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
			return models.Snapshot{}, false, nil
		}
		return models.Snapshot{}, false, fmt.Errorf("get %s: %w", r.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("read %s: %w", r.key, err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode %s: %w", r.key, err)
	}
	normalize(&snap)
	return snap, true, nil
}

func (r *s3SnapshotRepository) Save(ctx context.Context, snap models.Snapshot) error {
	normalize(&snap)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = r.store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.store.bucket),
		Key:         aws.String(r.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"last-modified-ms": strconv.FormatInt(snap.LastModified, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", r.key, err)
	}
	return nil
}
