package grouping

import (
	"sort"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// ServerSortKey selects the ordering for sorted host summaries.
type ServerSortKey string

const (
	SortByCritical ServerSortKey = "critical"
	SortByHigh     ServerSortKey = "high"
	SortByTotal    ServerSortKey = "total"
	SortByHostname ServerSortKey = "hostname"
)

// ServerGrouper aggregates findings into per-host summaries.
type ServerGrouper struct{}

// NewServerGrouper creates a host-centric grouper.
func NewServerGrouper() *ServerGrouper {
	return &ServerGrouper{}
}

// GroupByServer buckets findings by hostname. The first record seen for a
// host seeds its IPv4 and OS; later records only contribute counts.
func (g *ServerGrouper) GroupByServer(vulns []*domain.Vulnerability) map[string]*domain.ServerSummary {
	servers := make(map[string]*domain.ServerSummary)

	for _, v := range vulns {
		hostname := v.Hostname
		if hostname == "" {
			hostname = "Unknown"
		}

		s, ok := servers[hostname]
		if !ok {
			s = &domain.ServerSummary{
				Hostname:        hostname,
				IPV4:            v.IPV4,
				OperatingSystem: v.OperatingSystem,
			}
			servers[hostname] = s
		}

		s.Findings = append(s.Findings, v)
		s.TotalFindings++

		switch v.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityHigh:
			s.High++
		case domain.SeverityMedium:
			s.Medium++
		case domain.SeverityLow:
			s.Low++
		}

		if v.QuickWin != "" {
			s.QuickWins++
		}
	}

	return servers
}

// Sort orders host summaries by the requested key. Hostname sorts
// ascending, total descending. Any other key orders by the severity tuple
// (critical, high, medium, low), all descending, comparing the tuple
// lexicographically.
func (g *ServerGrouper) Sort(servers map[string]*domain.ServerSummary, key ServerSortKey) []*domain.ServerSummary {
	out := make([]*domain.ServerSummary, 0, len(servers))
	for _, s := range servers {
		out = append(out, s)
	}

	switch key {
	case SortByHostname:
		sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	case SortByTotal:
		sort.Slice(out, func(i, j int) bool { return out[i].TotalFindings > out[j].TotalFindings })
	default:
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.Critical != b.Critical {
				return a.Critical > b.Critical
			}
			if a.High != b.High {
				return a.High > b.High
			}
			if a.Medium != b.Medium {
				return a.Medium > b.Medium
			}
			return a.Low > b.Low
		})
	}
	return out
}

// Stats aggregates totals across all hosts.
func (g *ServerGrouper) Stats(servers map[string]*domain.ServerSummary) domain.ServerStats {
	stats := domain.ServerStats{TotalServers: len(servers)}
	for _, s := range servers {
		stats.TotalFindings += s.TotalFindings
		stats.TotalQuickWins += s.QuickWins
		stats.Critical += s.Critical
		stats.High += s.High
		stats.Medium += s.Medium
		stats.Low += s.Low
	}
	return stats
}
