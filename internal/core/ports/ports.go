package ports

import (
	"context"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// Exporter drives the remote bulk-export protocol and returns the merged
// raw record list. Implementations must not return partial results.
type Exporter interface {
	Export(ctx context.Context, filters domain.FilterSet) ([]domain.RawRecord, error)

	// ListTags returns the remote tag values used for filter discovery.
	ListTags(ctx context.Context) ([]domain.TagValue, error)
}

// FindingCache gates whether the Exporter is invoked at all.
// A stale or corrupted entry is reported as a miss, never as an error.
type FindingCache interface {
	Get(filters domain.FilterSet) ([]domain.RawRecord, *domain.CacheInfo, bool)
	Set(filters domain.FilterSet, records []domain.RawRecord) error
	GetInfo(filters domain.FilterSet) *domain.CacheInfo
	ClearAll() error
}

// RuleRepository supplies persisted vendor detection rules.
type RuleRepository interface {
	// ListEnabled returns enabled rules ordered by descending priority.
	ListEnabled(ctx context.Context) ([]domain.VendorRule, error)

	Upsert(ctx context.Context, rule domain.VendorRule) error

	// Seed inserts the default rule set, skipping vendor+product pairs
	// that already exist. Returns the number of rules inserted.
	Seed(ctx context.Context) (int, error)

	Close() error
}

// OverrideStore persists user-defined OS pattern -> device type mappings.
type OverrideStore interface {
	// List returns overrides in their stored order.
	List() ([]domain.Override, error)

	Add(pattern string, deviceType domain.DeviceType) error

	// Remove deletes a pattern; removing an unknown pattern is an error.
	Remove(pattern string) error

	Reload() error
}

// FindingStore is the persistence collaborator consuming pipeline output.
// Callers must deduplicate to at most one record per (asset, plugin) pair
// before handing a batch over; the store enforces that uniqueness.
type FindingStore interface {
	ReplaceFindings(ctx context.Context, findings []*domain.Vulnerability) (int, error)
	UpsertServers(ctx context.Context, servers []domain.ServerRecord) (created, updated int, err error)
	RecordRun(ctx context.Context, run domain.SyncRun) error
	Close() error
}
