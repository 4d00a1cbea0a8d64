package minio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/internal/testutil"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]minio.BucketInfo), args.Error(1)
}

func (m *MockAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MockAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api    *MockAPI
	client *Client
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockAPI)
	s.client = NewClientWithAPI(s.api, "geo", testutil.NewMockLogger())
}

func (s *ClientTestSuite) TestOpen_Success() {
	s.api.On("StatObject", mock.Anything, "geo", "ubs.csv", mock.Anything).
		Return(minio.ObjectInfo{Key: "ubs.csv", Size: 12}, nil)
	s.api.On("GetObject", mock.Anything, "geo", "ubs.csv", mock.Anything).
		Return(io.NopCloser(bytes.NewBufferString("x;y\n1;2\n")), nil)

	rc, err := s.client.Open(context.Background(), "ubs.csv")
	s.Require().NoError(err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	s.Equal("x;y\n1;2\n", string(body))
}

func (s *ClientTestSuite) TestOpen_NoSuchKey() {
	s.api.On("StatObject", mock.Anything, "geo", "absent.csv", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", Message: "missing"})

	_, err := s.client.Open(context.Background(), "absent.csv")
	s.Require().Error(err)
	s.True(errors.IsCode(err, errors.ErrCodeDatasetUnavailable))
	s.Contains(err.Error(), "absent.csv")
}

func (s *ClientTestSuite) TestOpen_Closed() {
	s.Require().NoError(s.client.Close())
	_, err := s.client.Open(context.Background(), "x")
	s.ErrorIs(err, ErrClientClosed)
}

func (s *ClientTestSuite) TestSource_ParsesTable() {
	s.api.On("StatObject", mock.Anything, "geo", "aldeias.csv", mock.Anything).
		Return(minio.ObjectInfo{}, nil)
	s.api.On("GetObject", mock.Anything, "geo", "aldeias.csv", mock.Anything).
		Return(io.NopCloser(bytes.NewBufferString("LONGITUDE;LATITUDE;nome\n-52.1;-26.3;Aldeia\n")), nil)

	tbl, err := s.client.Source("aldeias", "aldeias.csv", dataset.Options{}).Load(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"LONGITUDE", "LATITUDE", "nome"}, tbl.Columns)
	s.Len(tbl.Rows, 1)
}

func (s *ClientTestSuite) TestPut() {
	s.api.On("PutObject", mock.Anything, "geo", "snapshots/abc.json", mock.Anything, int64(2), mock.Anything).
		Return(minio.UploadInfo{Key: "snapshots/abc.json"}, nil)
	s.NoError(s.client.Put(context.Background(), SnapshotKey("snapshots", "abc"), []byte("{}"), "application/json"))
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestPut_Failure() {
	s.api.On("PutObject", mock.Anything, "geo", "k", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, io.ErrClosedPipe)
	err := s.client.Put(context.Background(), "k", []byte("x"), "text/plain")
	s.True(errors.IsCode(err, errors.ErrCodePublishFailed))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", mock.Anything, "geo").Return(false, nil).Once()
	status := s.client.HealthCheck(context.Background())
	s.False(status.Healthy)
	s.Contains(status.Error, "missing")

	s.api.On("BucketExists", mock.Anything, "geo").Return(true, nil).Once()
	s.True(s.client.HealthCheck(context.Background()).Healthy)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestSnapshotKey(t *testing.T) {
	require.Equal(t, "snapshots/id-1.json", SnapshotKey("snapshots", "id-1"))
	assert.Equal(t, "id-1.json", SnapshotKey("", "id-1"))
}
