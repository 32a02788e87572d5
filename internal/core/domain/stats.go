package domain

import "time"

// ProductGroup collects the findings of one product family.
// An empty Name represents the vendor's general bucket.
type ProductGroup struct {
	Name     string
	Findings []*Vulnerability
}

// VendorGroup is one vendor's product hierarchy. Products keep the
// insertion order of the merged record list.
type VendorGroup struct {
	Vendor   string
	Products []*ProductGroup
	Score    int
}

// Count returns the total number of findings across all products.
func (g *VendorGroup) Count() int {
	n := 0
	for _, p := range g.Products {
		n += len(p.Findings)
	}
	return n
}

// ProductStats summarizes one product family within a vendor.
type ProductStats struct {
	TotalFindings  int
	AffectedAssets int
}

// VendorStats summarizes one vendor across all its products.
type VendorStats struct {
	TotalFindings  int
	AffectedAssets int
	Critical       int
	High           int
	Medium         int
	Low            int
	Products       map[string]ProductStats
}

// ServerSummary is the host-centric aggregation of findings.
// Host-level fields are seeded by the first record seen for the host.
type ServerSummary struct {
	Hostname        string
	IPV4            string
	OperatingSystem string
	Findings        []*Vulnerability
	Critical        int
	High            int
	Medium          int
	Low             int
	TotalFindings   int
	QuickWins       int
}

// ServerStats aggregates totals across all hosts.
type ServerStats struct {
	TotalServers   int
	TotalFindings  int
	TotalQuickWins int
	Critical       int
	High           int
	Medium         int
	Low            int
}

// QuickWinResult buckets findings by quick-win category.
type QuickWinResult struct {
	VersionThreshold   []*Vulnerability
	UnsupportedProduct []*Vulnerability
	Total              int
}

// QuickWinBucketSummary is the severity breakdown of one quick-win bucket.
type QuickWinBucketSummary struct {
	Count    int
	Critical int
	High     int
}

// QuickWinSummary is the aggregate quick-win report.
type QuickWinSummary struct {
	Total              int
	VersionThreshold   QuickWinBucketSummary
	UnsupportedProduct QuickWinBucketSummary
}

// ServerRecord is the asset row synced to the server inventory.
type ServerRecord struct {
	AssetUUID       string
	Hostname        string
	IPV4            string
	OperatingSystem string
	DeviceType      DeviceType
	LastSeen        time.Time
}

// SyncRun is the audit row recorded after a pipeline run.
type SyncRun struct {
	ID             string
	Timestamp      time.Time
	Filters        FilterSet
	TotalFindings  int
	TotalAssets    int
	RuntimeSeconds float64
	GeneratedBy    string
}
