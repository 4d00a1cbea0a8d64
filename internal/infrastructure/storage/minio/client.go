// Package minio reads point datasets from, and archives refresh snapshots to,
// S3-compatible object storage.
package minio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// API is the subset of the MinIO SDK used here. GetObject returns a plain
// io.ReadCloser so tests can substitute in-memory objects.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// sdkAPI adapts *minio.Client to API.
type sdkAPI struct {
	*minio.Client
}

func (s sdkAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return s.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Client is a bucket-scoped object store.
type Client struct {
	api    API
	bucket string
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New(errors.ErrCodeInternal, "minio client is closed")

// NewClient connects to cfg.Endpoint and verifies cfg.Bucket exists.
func NewClient(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	c := NewClientWithAPI(sdkAPI{mc}, cfg.Bucket, log)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := c.api.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to connect to minio").
			WithDetail(cfg.Endpoint)
	}
	if !exists {
		return nil, errors.Newf(errors.ErrCodeDatasetUnavailable, "bucket %s does not exist", cfg.Bucket)
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI builds a Client over an existing API implementation.
func NewClientWithAPI(api API, bucket string, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, bucket: bucket, logger: log.Named("minio")}
}

// Bucket returns the bucket every operation targets.
func (c *Client) Bucket() string { return c.bucket }

// Close marks the client closed. The SDK holds no persistent connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// HealthStatus reports connectivity to the object store.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// HealthCheck probes the configured bucket.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	exists, err := c.api.BucketExists(ctx, c.bucket)
	status := &HealthStatus{Healthy: err == nil && exists, Latency: time.Since(start)}
	switch {
	case err != nil:
		status.Error = err.Error()
	case !exists:
		status.Error = "bucket " + c.bucket + " missing"
	}
	return status
}
