package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/mock"
)

func testClient(srv *mock.ExportServer) (*Client, func()) {
	baseURL := srv.Start()
	policy := RetryPolicy{MaxRetries: 2, BackoffFactor: 0, RetryStatuses: []int{429, 500, 502, 503, 504}}
	transport := NewTransport(baseURL, "ak", "sk", "vulnsync-test", 5*time.Second, policy)
	client := NewClient(transport, ClientConfig{
		AssetsPerChunk:      50,
		ExportTimeout:       5 * time.Second,
		PollInitialWait:     time.Millisecond,
		PollMaxWait:         5 * time.Millisecond,
		MaxConcurrentChunks: 4,
	})
	return client, srv.Close
}

func TestExportMergesAllChunks(t *testing.T) {
	records := mock.NewDataGenerator(1, 10).Records(120)
	srv := mock.NewExportServer(records, 50) // 3 chunks
	client, done := testClient(srv)
	defer done()

	got, err := client.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 120)
}

func TestExportChunkCountAndListFormsEquivalent(t *testing.T) {
	records := mock.NewDataGenerator(2, 5).Records(90)

	for name, asList := range map[string]bool{"count": false, "list": true} {
		t.Run(name, func(t *testing.T) {
			srv := mock.NewExportServer(records, 30)
			srv.ReportChunksAsList = asList
			client, done := testClient(srv)
			defer done()

			got, err := client.Export(context.Background(), nil)
			require.NoError(t, err)
			assert.Len(t, got, 90)
		})
	}
}

func TestExportJobErrorState(t *testing.T) {
	srv := mock.NewExportServer(mock.NewDataGenerator(3, 2).Records(10), 10)
	srv.FailJobs = true
	client, done := testClient(srv)
	defer done()

	_, err := client.Export(context.Background(), nil)
	require.Error(t, err)

	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Message, "ERROR")
}

func TestExportPollTimeout(t *testing.T) {
	srv := mock.NewExportServer(mock.NewDataGenerator(4, 2).Records(10), 10)
	srv.PendingPolls = 1000
	baseURL := srv.Start()
	defer srv.Close()

	transport := NewTransport(baseURL, "ak", "sk", "vulnsync-test", 5*time.Second, DefaultRetryPolicy())
	client := NewClient(transport, ClientConfig{
		AssetsPerChunk:      50,
		ExportTimeout:       30 * time.Millisecond,
		PollInitialWait:     5 * time.Millisecond,
		PollMaxWait:         10 * time.Millisecond,
		MaxConcurrentChunks: 2,
	})

	_, err := client.Export(context.Background(), nil)
	require.Error(t, err)

	var terr *TimeoutError
	require.True(t, errors.As(err, &terr), "expected timeout error, got %v", err)
	assert.Equal(t, 30*time.Millisecond, terr.Waited)
}

func TestExportChunkFailureReturnsNoPartialResults(t *testing.T) {
	srv := mock.NewExportServer(mock.NewDataGenerator(5, 5).Records(90), 30)
	srv.FailChunk = 1
	baseURL := srv.Start()
	defer srv.Close()

	// No retries so the injected 500 fails the chunk immediately.
	policy := RetryPolicy{MaxRetries: 0, BackoffFactor: 0, RetryStatuses: nil}
	transport := NewTransport(baseURL, "ak", "sk", "vulnsync-test", 5*time.Second, policy)
	client := NewClient(transport, ClientConfig{
		AssetsPerChunk:      50,
		ExportTimeout:       5 * time.Second,
		PollInitialWait:     time.Millisecond,
		PollMaxWait:         5 * time.Millisecond,
		MaxConcurrentChunks: 2,
	})

	got, err := client.Export(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestExportDefaultFiltersApplied(t *testing.T) {
	srv := mock.NewExportServer(mock.NewDataGenerator(6, 2).Records(10), 10)
	client, done := testClient(srv)
	defer done()

	_, err := client.Export(context.Background(), nil)
	require.NoError(t, err)

	state, ok := srv.LastFilters["state"].([]any)
	require.True(t, ok, "state filter missing: %v", srv.LastFilters)
	assert.ElementsMatch(t, []any{"open", "reopened"}, state)
}

func TestExportCallerFiltersOverrideDefaults(t *testing.T) {
	srv := mock.NewExportServer(mock.NewDataGenerator(7, 2).Records(10), 10)
	client, done := testClient(srv)
	defer done()

	filters := domain.FilterSet{
		"state":    []string{"open"},
		"severity": []string{"critical", "high"},
	}
	_, err := client.Export(context.Background(), filters)
	require.NoError(t, err)

	state, ok := srv.LastFilters["state"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"open"}, state)

	severity, ok := srv.LastFilters["severity"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"critical", "high"}, severity)
}

func TestListTags(t *testing.T) {
	srv := mock.NewExportServer(nil, 10)
	client, done := testClient(srv)
	defer done()

	tags, err := client.ListTags(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, "Environment", tags[0].Category)
}

func TestChunkListUnmarshal(t *testing.T) {
	var c chunkList
	require.NoError(t, c.UnmarshalJSON([]byte("3")))
	assert.Equal(t, chunkList{0, 1, 2}, c)

	require.NoError(t, c.UnmarshalJSON([]byte("[4,7]")))
	assert.Equal(t, chunkList{4, 7}, c)

	require.NoError(t, c.UnmarshalJSON([]byte("0")))
	assert.Empty(t, c)

	assert.Error(t, c.UnmarshalJSON([]byte(`"nope"`)))
}
