package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/core/ports"
	"github.com/lcalzada-xor/vulnsync/internal/core/services/classify"
	"github.com/lcalzada-xor/vulnsync/internal/core/services/normalize"
	"github.com/lcalzada-xor/vulnsync/internal/core/services/quickwin"
	"github.com/lcalzada-xor/vulnsync/internal/core/services/vendor"
)

// Service runs the full pipeline: fetch (cache or export), normalize,
// enrich, deduplicate, persist.
type Service struct {
	exporter ports.Exporter
	cache    ports.FindingCache
	rules    ports.RuleRepository
	store    ports.FindingStore

	classifier *classify.Classifier
	quickwins  *quickwin.Detector

	logger *slog.Logger
}

// Result summarizes one pipeline run.
type Result struct {
	FromCache      bool
	RawRecords     int
	Findings       int
	Stored         int
	ServersCreated int
	ServersUpdated int
	QuickWins      domain.QuickWinSummary
	Runtime        time.Duration
}

// New wires the pipeline collaborators. rules may be nil, in which case
// vendor detection runs on heuristics alone.
func New(exporter ports.Exporter, cache ports.FindingCache, rules ports.RuleRepository, store ports.FindingStore, overrides ports.OverrideStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		exporter:   exporter,
		cache:      cache,
		rules:      rules,
		store:      store,
		classifier: classify.New(overrides),
		quickwins:  quickwin.New(),
		logger:     logger,
	}
}

// fetch returns raw records, serving from cache when a fresh entry exists.
// forceRefresh bypasses the cache read but still updates it.
func (s *Service) fetch(ctx context.Context, filters domain.FilterSet, forceRefresh bool) ([]domain.RawRecord, bool, error) {
	if s.cache != nil && !forceRefresh {
		if records, info, ok := s.cache.Get(filters); ok {
			s.logger.Info("serving findings from cache",
				"count", len(records), "age_hours", fmt.Sprintf("%.1f", info.AgeHours))
			return records, true, nil
		}
	}

	records, err := s.exporter.Export(ctx, filters)
	if err != nil {
		return nil, false, fmt.Errorf("export: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(filters, records); err != nil {
			s.logger.Warn("cache write failed", "error", err)
		}
	}
	return records, false, nil
}

// Run executes the pipeline and persists the enriched findings.
func (s *Service) Run(ctx context.Context, filters domain.FilterSet, forceRefresh bool) (*Result, error) {
	start := time.Now()

	raw, fromCache, err := s.fetch(ctx, filters, forceRefresh)
	if err != nil {
		return nil, err
	}
	s.logger.Info("fetch complete", "records", len(raw), "from_cache", fromCache)

	findings := s.Enrich(ctx, raw)

	stored, err := s.store.ReplaceFindings(ctx, findings)
	if err != nil {
		return nil, fmt.Errorf("store findings: %w", err)
	}

	created, updated, err := s.SyncServers(ctx, findings)
	if err != nil {
		return nil, fmt.Errorf("sync servers: %w", err)
	}

	result := &Result{
		FromCache:      fromCache,
		RawRecords:     len(raw),
		Findings:       len(findings),
		Stored:         stored,
		ServersCreated: created,
		ServersUpdated: updated,
		QuickWins:      quickwin.Summary(findings),
		Runtime:        time.Since(start),
	}

	run := domain.SyncRun{
		Timestamp:      start,
		Filters:        filters,
		TotalFindings:  len(findings),
		TotalAssets:    countAssets(findings),
		RuntimeSeconds: result.Runtime.Seconds(),
		GeneratedBy:    "vulnsync",
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("run audit record failed", "error", err)
	}

	s.logger.Info("sync complete",
		"findings", result.Findings,
		"servers_created", created,
		"servers_updated", updated,
		"quick_wins", result.QuickWins.Total,
		"runtime", result.Runtime.Round(time.Millisecond))
	return result, nil
}

// Enrich runs the in-memory pipeline stages over raw records without
// persisting anything. Used for read-only reporting paths.
func (s *Service) Enrich(ctx context.Context, raw []domain.RawRecord) []*domain.Vulnerability {
	findings := normalize.Batch(raw)

	var ruleSet []domain.VendorRule
	if s.rules != nil {
		var err error
		ruleSet, err = s.rules.ListEnabled(ctx)
		if err != nil {
			s.logger.Warn("rule load failed, falling back to heuristics", "error", err)
			ruleSet = nil
		}
	}

	s.classifier.EnrichBatch(findings)
	vendor.New(ruleSet).EnrichBatch(findings)
	s.quickwins.DetectBatch(findings)
	return Dedupe(findings)
}

// SyncServers extracts the distinct assets from a finding batch and
// upserts them into the server inventory. The first finding seen for an
// asset supplies its host fields.
func (s *Service) SyncServers(ctx context.Context, findings []*domain.Vulnerability) (created, updated int, err error) {
	seen := make(map[string]bool)
	var servers []domain.ServerRecord
	now := time.Now()

	for _, f := range findings {
		if f.AssetUUID == "" || seen[f.AssetUUID] {
			continue
		}
		seen[f.AssetUUID] = true
		servers = append(servers, domain.ServerRecord{
			AssetUUID:       f.AssetUUID,
			Hostname:        f.Hostname,
			IPV4:            f.IPV4,
			OperatingSystem: f.OperatingSystem,
			DeviceType:      f.DeviceType,
			LastSeen:        now,
		})
	}

	if len(servers) == 0 {
		return 0, 0, nil
	}
	return s.store.UpsertServers(ctx, servers)
}

// Dedupe keeps the first finding per (asset, plugin) pair, preserving
// input order.
func Dedupe(findings []*domain.Vulnerability) []*domain.Vulnerability {
	type key struct {
		asset  string
		plugin string
	}
	seen := make(map[key]bool, len(findings))
	out := findings[:0:0]
	for _, f := range findings {
		k := key{f.AssetUUID, f.PluginID}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

func countAssets(findings []*domain.Vulnerability) int {
	seen := make(map[string]bool)
	for _, f := range findings {
		if f.AssetUUID != "" {
			seen[f.AssetUUID] = true
		}
	}
	return len(seen)
}
