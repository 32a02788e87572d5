package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

func sampleRecords(n int) []domain.RawRecord {
	records := make([]domain.RawRecord, n)
	for i := range records {
		records[i] = domain.RawRecord{
			Asset:    domain.RawAsset{UUID: "asset-1", Hostname: domain.FlexString{"web-01"}},
			Plugin:   domain.RawPlugin{ID: json.Number("12345"), Name: "Test Finding"},
			Severity: "high",
			State:    "open",
		}
	}
	return records
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	filters := domain.FilterSet{"severity": []string{"high"}}
	require.NoError(t, c.Set(filters, sampleRecords(3)))

	got, info, ok := c.Get(filters)
	require.True(t, ok)
	assert.Len(t, got, 3)
	assert.Equal(t, 3, info.Count)
	assert.False(t, info.Stale)
	assert.Equal(t, "web-01", got[0].Asset.Hostname.First())
}

func TestCacheKeyIgnoresFilterKeyOrder(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	a := domain.FilterSet{"severity": []string{"high"}, "state": []string{"open"}}
	b := domain.FilterSet{"state": []string{"open"}, "severity": []string{"high"}}
	assert.Equal(t, c.key(a), c.key(b))

	require.NoError(t, c.Set(a, sampleRecords(2)))
	got, _, ok := c.Get(b)
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestCacheDistinctFiltersDistinctEntries(t *testing.T) {
	c, err := New(t.TempDir(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set(domain.FilterSet{"severity": []string{"high"}}, sampleRecords(1)))

	_, _, ok := c.Get(domain.FilterSet{"severity": []string{"low"}})
	assert.False(t, ok)
}

func TestCacheStaleEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 10*time.Millisecond)
	require.NoError(t, err)

	filters := domain.FilterSet{"state": []string{"open"}}
	require.NoError(t, c.Set(filters, sampleRecords(1)))

	time.Sleep(25 * time.Millisecond)

	_, _, ok := c.Get(filters)
	assert.False(t, ok)

	// GetInfo still reports the entry so callers can show its age.
	info := c.GetInfo(filters)
	require.NotNil(t, info)
	assert.True(t, info.Stale)
}

func TestCacheCorruptedDataIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Hour)
	require.NoError(t, err)

	filters := domain.FilterSet{"state": []string{"open"}}
	require.NoError(t, c.Set(filters, sampleRecords(1)))

	require.NoError(t, os.WriteFile(c.dataPath(c.key(filters)), []byte("{not json"), 0644))

	_, _, ok := c.Get(filters)
	assert.False(t, ok)
}

func TestCacheMissingMetaIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Hour)
	require.NoError(t, err)

	filters := domain.FilterSet{}
	require.NoError(t, c.Set(filters, sampleRecords(1)))
	require.NoError(t, os.Remove(c.metaPath(c.key(filters))))

	_, _, ok := c.Get(filters)
	assert.False(t, ok)
	assert.Nil(t, c.GetInfo(filters))
}

func TestCacheClearAll(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Set(domain.FilterSet{"a": 1}, sampleRecords(1)))
	require.NoError(t, c.Set(domain.FilterSet{"b": 2}, sampleRecords(1)))
	require.NoError(t, c.ClearAll())

	matches, err := filepath.Glob(filepath.Join(dir, "vulns_*.json"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
