package grouping

import (
	"log/slog"
	"sort"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// Grouper aggregates findings into a vendor -> product family hierarchy
// with severity-weighted vendor ordering.
type Grouper struct{}

// NewGrouper creates a hierarchical grouper.
func NewGrouper() *Grouper {
	return &Grouper{}
}

// Group builds the vendor/product hierarchy preserving the insertion
// order of the record list at every level.
func (g *Grouper) Group(vulns []*domain.Vulnerability) []*domain.VendorGroup {
	var groups []*domain.VendorGroup
	byVendor := make(map[string]*domain.VendorGroup)

	for _, v := range vulns {
		vendor := v.Vendor
		if vendor == "" {
			vendor = "Other"
		}

		vg, ok := byVendor[vendor]
		if !ok {
			vg = &domain.VendorGroup{Vendor: vendor}
			byVendor[vendor] = vg
			groups = append(groups, vg)
		}

		var pg *domain.ProductGroup
		for _, p := range vg.Products {
			if p.Name == v.ProductFamily {
				pg = p
				break
			}
		}
		if pg == nil {
			pg = &domain.ProductGroup{Name: v.ProductFamily}
			vg.Products = append(vg.Products, pg)
		}
		pg.Findings = append(pg.Findings, v)
	}

	for _, vg := range groups {
		vg.Score = severityScore(vg)
	}

	slog.Info("grouped findings", "records", len(vulns), "vendors", len(groups))
	return groups
}

// severityScore sums the weighted severities over all of a vendor's
// products: critical=10, high=5, medium=2, low=1.
func severityScore(vg *domain.VendorGroup) int {
	score := 0
	for _, p := range vg.Products {
		for _, v := range p.Findings {
			score += v.Severity.Score()
		}
	}
	return score
}

// SortVendors orders groups by descending severity score. "Other" always
// sorts last regardless of score; ties keep insertion order.
func (g *Grouper) SortVendors(groups []*domain.VendorGroup) []*domain.VendorGroup {
	sorted := make([]*domain.VendorGroup, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Vendor == "Other") != (sorted[j].Vendor == "Other") {
			return sorted[j].Vendor == "Other"
		}
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// Statistics computes per-vendor totals, distinct affected assets,
// severity counts, and the per-product breakdown.
func (g *Grouper) Statistics(groups []*domain.VendorGroup) map[string]*domain.VendorStats {
	stats := make(map[string]*domain.VendorStats, len(groups))

	for _, vg := range groups {
		vs := &domain.VendorStats{Products: make(map[string]domain.ProductStats)}
		vendorAssets := make(map[string]bool)

		for _, pg := range vg.Products {
			prodAssets := make(map[string]bool)
			for _, v := range pg.Findings {
				if v.AssetUUID != "" {
					prodAssets[v.AssetUUID] = true
					vendorAssets[v.AssetUUID] = true
				}
				vs.TotalFindings++
				switch v.Severity {
				case domain.SeverityCritical:
					vs.Critical++
				case domain.SeverityHigh:
					vs.High++
				case domain.SeverityMedium:
					vs.Medium++
				case domain.SeverityLow:
					vs.Low++
				}
			}
			vs.Products[pg.Name] = domain.ProductStats{
				TotalFindings:  len(pg.Findings),
				AffectedAssets: len(prodAssets),
			}
		}

		vs.AffectedAssets = len(vendorAssets)
		stats[vg.Vendor] = vs
	}

	return stats
}

// GroupAndSort groups, sorts, and computes statistics in one call.
func (g *Grouper) GroupAndSort(vulns []*domain.Vulnerability) ([]*domain.VendorGroup, map[string]*domain.VendorStats) {
	groups := g.Group(vulns)
	sorted := g.SortVendors(groups)
	stats := g.Statistics(groups)
	return sorted, stats
}
