package repository

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockObjectURL = `=~^https://s3\.mock\.local/goally-test/snapshots/alice\.json`

func newMockS3Store(t *testing.T) (*S3SnapshotStore, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client := s3.New(s3.Options{
		Region:                     "us-east-1",
		Credentials:                credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		HTTPClient:                 &http.Client{Transport: transport},
		BaseEndpoint:               aws.String("https://s3.mock.local"),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	return NewS3SnapshotStoreWithClient(client, "goally-test"), transport
}

func TestS3SnapshotRepository_RoundTrip(t *testing.T) {
	store, transport := newMockS3Store(t)

	var mu sync.Mutex
	var object []byte
	transport.RegisterResponder(http.MethodPut, mockObjectURL, func(req *http.Request) (*http.Response, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		object = body
		mu.Unlock()
		return httpmock.NewStringResponse(http.StatusOK, ""), nil
	})
	transport.RegisterResponder(http.MethodGet, mockObjectURL, func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if object == nil {
			return httpmock.NewStringResponse(http.StatusNotFound,
				`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`), nil
		}
		return httpmock.NewBytesResponse(http.StatusOK, object), nil
	})

	ctx := context.Background()
	repo := store.For("alice")

	_, found, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Save(ctx, sampleSnapshot()))

	got, found, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleSnapshot(), got)
	assert.Equal(t, 1, transport.GetCallCountInfo()["PUT "+mockObjectURL])
}

func TestS3SnapshotRepository_ServerErrorIsNotAbsent(t *testing.T) {
	store, transport := newMockS3Store(t)
	transport.RegisterResponder(http.MethodGet, mockObjectURL,
		httpmock.NewStringResponder(http.StatusForbidden,
			`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))

	_, found, err := store.For("alice").Load(context.Background())
	require.Error(t, err)
	assert.False(t, found)
}
