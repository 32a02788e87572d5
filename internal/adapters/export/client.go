package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/telemetry"
)

const (
	statusFinished = "FINISHED"
	statusError    = "ERROR"
)

// ClientConfig holds the export protocol knobs.
type ClientConfig struct {
	AssetsPerChunk      int
	ExportTimeout       time.Duration // wall-clock bound on the polling phase
	PollInitialWait     time.Duration
	PollMaxWait         time.Duration
	MaxConcurrentChunks int
}

// Client implements ports.Exporter against the bulk-export API:
// initiate -> poll -> parallel chunk download -> merge.
type Client struct {
	transport *Transport
	cfg       ClientConfig
}

// NewClient creates a bulk-export client over the given transport.
func NewClient(t *Transport, cfg ClientConfig) *Client {
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 4
	}
	return &Client{transport: t, cfg: cfg}
}

// defaultFilters restricts exports to findings still open on the remote
// side. Caller-supplied filters override these on key collision.
func defaultFilters() domain.FilterSet {
	return domain.FilterSet{
		"state": []string{"open", "reopened"},
	}
}

// chunkList normalizes the status payload's chunks_available field, which
// the API serves either as an integer count or as an explicit list of
// chunk identifiers. A count n becomes [0..n-1].
type chunkList []int

func (c *chunkList) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = i
		}
		*c = ids
		return nil
	}
	var ids []int
	if err := json.Unmarshal(data, &ids); err == nil {
		*c = ids
		return nil
	}
	return fmt.Errorf("chunks_available: expected int or []int, got %s", data)
}

type exportStatus struct {
	Status          string    `json:"status"`
	ChunksAvailable chunkList `json:"chunks_available"`
}

// Export runs the full workflow and returns the merged record list.
// Order across chunks is not meaningful. On any unrecoverable failure no
// partial results are returned.
func (c *Client) Export(ctx context.Context, filters domain.FilterSet) ([]domain.RawRecord, error) {
	start := time.Now()
	merged := defaultFilters().Merge(filters)

	exportID, err := c.initiate(ctx, merged)
	if err != nil {
		telemetry.ExportsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	slog.Info("export job initiated", "export_id", exportID)

	chunks, err := c.pollStatus(ctx, exportID)
	if err != nil {
		telemetry.ExportsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	slog.Info("export job finished", "export_id", exportID, "chunks", len(chunks))

	records, err := c.downloadChunks(ctx, exportID, chunks)
	if err != nil {
		telemetry.ExportsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	telemetry.ExportsTotal.WithLabelValues("success").Inc()
	telemetry.ExportDuration.Observe(time.Since(start).Seconds())
	slog.Info("export complete", "records", len(records), "elapsed", time.Since(start))
	return records, nil
}

func (c *Client) initiate(ctx context.Context, filters domain.FilterSet) (string, error) {
	payload := map[string]any{
		"num_assets": c.cfg.AssetsPerChunk,
		"filters":    filters,
	}
	var resp struct {
		ExportUUID string `json:"export_uuid"`
	}
	if err := c.transport.Do(ctx, http.MethodPost, "/vulns/export", payload, &resp); err != nil {
		return "", fmt.Errorf("initiate export: %w", err)
	}
	if resp.ExportUUID == "" {
		return "", &ProtocolError{Op: "POST /vulns/export", Message: "response missing export_uuid"}
	}
	return resp.ExportUUID, nil
}

// pollStatus polls with exponential backoff (x1.5, capped) until the job
// reports FINISHED or ERROR, or the wall-clock timeout elapses.
func (c *Client) pollStatus(ctx context.Context, exportID string) ([]int, error) {
	wait := c.cfg.PollInitialWait
	deadline := time.Now().Add(c.cfg.ExportTimeout)

	for {
		var status exportStatus
		err := c.transport.Do(ctx, http.MethodGet, "/vulns/export/"+exportID+"/status", nil, &status)
		if err != nil {
			return nil, fmt.Errorf("poll export status: %w", err)
		}

		switch status.Status {
		case statusFinished:
			return status.ChunksAvailable, nil
		case statusError:
			return nil, &ProtocolError{Op: "export job " + exportID, Message: "job reached ERROR state"}
		}

		if time.Now().Add(wait).After(deadline) {
			return nil, &TimeoutError{ExportID: exportID, Waited: c.cfg.ExportTimeout}
		}

		slog.Debug("export still running", "export_id", exportID, "status", status.Status, "next_poll", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		wait = time.Duration(float64(wait) * 1.5)
		if wait > c.cfg.PollMaxWait {
			wait = c.cfg.PollMaxWait
		}
	}
}

// downloadChunks fans out one task per chunk, bounded by the configured
// concurrency. The first failing chunk cancels the remaining in-flight
// downloads and fails the whole export.
func (c *Client) downloadChunks(ctx context.Context, exportID string, chunks []int) ([]domain.RawRecord, error) {
	results := make([][]domain.RawRecord, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentChunks)

	var mu sync.Mutex
	downloaded := 0

	for i, chunkID := range chunks {
		i, chunkID := i, chunkID
		g.Go(func() error {
			var records []domain.RawRecord
			path := fmt.Sprintf("/vulns/export/%s/chunks/%d", exportID, chunkID)
			if err := c.transport.Do(gctx, http.MethodGet, path, nil, &records); err != nil {
				return fmt.Errorf("download chunk %d: %w", chunkID, err)
			}
			results[i] = records
			telemetry.ChunksDownloaded.Inc()

			mu.Lock()
			downloaded++
			slog.Debug("chunk downloaded", "chunk", chunkID, "records", len(records), "progress", fmt.Sprintf("%d/%d", downloaded, len(chunks)))
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []domain.RawRecord
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// ListTags fetches the remote tag values used for filter discovery.
func (c *Client) ListTags(ctx context.Context) ([]domain.TagValue, error) {
	var resp struct {
		Values []domain.TagValue `json:"values"`
	}
	if err := c.transport.Do(ctx, http.MethodGet, "/tags/values", nil, &resp); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return resp.Values, nil
}
