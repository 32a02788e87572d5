package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vulnsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleFindings() []*domain.Vulnerability {
	return []*domain.Vulnerability{
		{
			AssetUUID:  "a-1",
			PluginID:   "101",
			Hostname:   "web-01",
			PluginName: "Apache HTTP Server < 2.4.54",
			CVE:        []string{"CVE-2022-31813", "CVE-2022-26377"},
			Severity:   domain.SeverityCritical,
			DeviceType: domain.DeviceServer,
			Vendor:     "Apache",
		},
		{
			AssetUUID: "a-2",
			PluginID:  "202",
			Hostname:  "ws-07",
			Severity:  domain.SeverityMedium,
		},
	}
}

func TestReplaceFindingsIsFullRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.ReplaceFindings(ctx, sampleFindings())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.CountFindings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	// A second run replaces, never accumulates.
	n, err = store.ReplaceFindings(ctx, sampleFindings()[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err = store.CountFindings(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestReplaceFindingsEmptyBatchClearsTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceFindings(ctx, sampleFindings())
	require.NoError(t, err)

	n, err := store.ReplaceFindings(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.CountFindings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceFindingsRejectsDuplicatePairs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dup := []*domain.Vulnerability{
		{AssetUUID: "a-1", PluginID: "101"},
		{AssetUUID: "a-1", PluginID: "101"},
	}
	_, err := store.ReplaceFindings(ctx, dup)
	require.Error(t, err, "duplicate (asset, plugin) pairs must violate the unique index")

	count, err := store.CountFindings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must roll back entirely")
}

func TestUpsertServersCreateThenUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []domain.ServerRecord{
		{AssetUUID: "a-1", Hostname: "web-01", IPV4: "10.0.0.5", DeviceType: domain.DeviceServer, LastSeen: time.Now()},
		{AssetUUID: "a-2", Hostname: "ws-07", DeviceType: domain.DeviceWorkstation, LastSeen: time.Now()},
	}
	created, updated, err := store.UpsertServers(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Zero(t, updated)

	second := []domain.ServerRecord{
		{AssetUUID: "a-1", Hostname: "web-01-renamed", IPV4: "10.0.0.6", DeviceType: domain.DeviceServer, LastSeen: time.Now()},
		{AssetUUID: "a-3", Hostname: "db-02", DeviceType: domain.DeviceServer, LastSeen: time.Now()},
	}
	created, updated, err = store.UpsertServers(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, updated)

	var m ServerModel
	require.NoError(t, store.db.Where("asset_uuid = ?", "a-1").First(&m).Error)
	assert.Equal(t, "web-01-renamed", m.Hostname)
	assert.Equal(t, "10.0.0.6", m.IPV4)
}

func TestRecordRunAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := domain.SyncRun{
		Filters:        domain.FilterSet{"severity": []string{"critical"}},
		TotalFindings:  42,
		TotalAssets:    7,
		RuntimeSeconds: 1.5,
		GeneratedBy:    "vulnsync",
	}
	require.NoError(t, store.RecordRun(ctx, run))

	var m SyncRunModel
	require.NoError(t, store.db.First(&m).Error)
	assert.NotEmpty(t, m.RunID)
	assert.False(t, m.Timestamp.IsZero())
	assert.Equal(t, 42, m.TotalFindings)
	assert.Contains(t, m.FiltersJSON, "critical")
}

func TestFindingModelTruncatesOversizedText(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	v := &domain.Vulnerability{Description: string(long), PluginName: string(long)}

	m := toFindingModel(v)
	assert.Len(t, m.Description, 2000)
	assert.Len(t, m.PluginName, 500)
}

func TestTruncatePreservesRuneBoundaries(t *testing.T) {
	// Two 2-byte runes then 3-byte runes: a 6-byte cap lands inside the
	// first 3-byte rune and must back off to 4.
	s := strings.Repeat("é", 2) + strings.Repeat("世", 3)

	got := truncate(s, 6)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 6)
	assert.Equal(t, "éé", got)

	assert.Equal(t, "abc", truncate("abc", 10), "short strings pass through")
	assert.Equal(t, "", truncate("世", 2), "a single oversized rune truncates to empty")
}
