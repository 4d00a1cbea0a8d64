package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ErrObjectNotFound is returned when a dataset object is absent.
var ErrObjectNotFound = errors.New(errors.ErrCodeDatasetUnavailable, "object not found")

// Open streams objectKey from the bucket. A missing key returns
// ErrObjectNotFound with the key as detail.
func (c *Client) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	info, err := c.api.StatObject(ctx, c.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound.WithDetail(objectKey)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to stat object").WithDetail(objectKey)
	}
	rc, err := c.api.GetObject(ctx, c.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to get object").WithDetail(objectKey)
	}
	c.logger.Debug("object opened", logging.String("key", objectKey), logging.Int64("size", info.Size))
	return rc, nil
}

// Put uploads data under objectKey.
func (c *Client) Put(ctx context.Context, objectKey string, data []byte, contentType string) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	_, err := c.api.PutObject(ctx, c.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePublishFailed, "failed to upload object").WithDetail(objectKey)
	}
	return nil
}

// Source returns a dataset source reading objectKey on every load.
func (c *Client) Source(name, objectKey string, opts dataset.Options) *dataset.StreamSource {
	return dataset.NewStreamSource(name, func(ctx context.Context) (io.ReadCloser, error) {
		return c.Open(ctx, objectKey)
	}, opts)
}

// SnapshotKey is the object key under which a snapshot is archived.
func SnapshotKey(prefix, snapshotID string) string {
	return path.Join(prefix, snapshotID+".json")
}
