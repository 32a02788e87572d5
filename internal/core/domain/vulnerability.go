package domain

import (
	"encoding/json"
	"strings"
)

// Severity is the finding severity assigned by the scanning service.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// Score returns the weight used for vendor prioritization.
// Critical=10, High=5, Medium=2, Low=1, Info=0.
func (s Severity) Score() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// NormalizeSeverity maps the lowercase wire value ("critical") to the
// canonical capitalized form. Empty input degrades to Info.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// DeviceType is the coarse classification of an asset.
type DeviceType string

const (
	DeviceServer      DeviceType = "server"
	DeviceWorkstation DeviceType = "workstation"
	DeviceNetwork     DeviceType = "network"
	DeviceUnknown     DeviceType = "unknown"
)

// ParseDeviceType validates a device type value against the fixed enum.
func ParseDeviceType(s string) (DeviceType, bool) {
	switch DeviceType(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceServer:
		return DeviceServer, true
	case DeviceWorkstation:
		return DeviceWorkstation, true
	case DeviceNetwork:
		return DeviceNetwork, true
	case DeviceUnknown:
		return DeviceUnknown, true
	}
	return "", false
}

// Confidence is the strength of a vendor/product detection match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// QuickWinCategory marks findings resolvable with low effort.
// Empty means the finding is not a quick win.
type QuickWinCategory string

const (
	QuickWinVersionThreshold   QuickWinCategory = "version_threshold"
	QuickWinUnsupportedProduct QuickWinCategory = "unsupported_product"
)

// FlexString decodes a JSON value that the export API serves either as a
// scalar string or as a list of strings. The schema is not under our
// control, so both forms must be accepted.
type FlexString []string

// UnmarshalJSON accepts "x", ["x","y"], null, and numbers (stringified).
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FlexString(list)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString{n.String()}
		return nil
	}
	// null or unexpected shape: degrade to empty
	*f = nil
	return nil
}

// First returns the first non-empty element, or "".
func (f FlexString) First() string {
	for _, s := range f {
		if s != "" {
			return s
		}
	}
	return ""
}

// Join returns all non-empty elements joined by ", ".
func (f FlexString) Join() string {
	var parts []string
	for _, s := range f {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// RawAsset is the asset sub-object of an export record.
type RawAsset struct {
	UUID            string     `json:"uuid"`
	Hostname        FlexString `json:"hostname"`
	IPV4            FlexString `json:"ipv4"`
	OperatingSystem FlexString `json:"operating_system"`
}

// RawPlugin is the plugin/finding sub-object of an export record.
type RawPlugin struct {
	ID               json.Number `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Solution         string      `json:"solution"`
	Synopsis         string      `json:"synopsis"`
	SeeAlso          []string    `json:"see_also"`
	CVE              []string    `json:"cve"`
	ExploitAvailable bool        `json:"exploit_available"`
	HasPatch         bool        `json:"has_patch"`
}

// RawRecord is a vulnerability record as served by the bulk-export API.
type RawRecord struct {
	Asset      RawAsset  `json:"asset"`
	Plugin     RawPlugin `json:"plugin"`
	Severity   string    `json:"severity"`
	State      string    `json:"state"`
	FirstFound string    `json:"first_found"`
	LastFound  string    `json:"last_found"`
}

// Vulnerability is the canonical flat record produced by the normalizer.
// Vendor, ProductFamily, DeviceType, and QuickWin start empty and are
// populated by the enrichment passes.
type Vulnerability struct {
	AssetUUID       string `json:"asset_uuid"`
	Hostname        string `json:"hostname"`
	IPV4            string `json:"ipv4"`
	OperatingSystem string `json:"operating_system"`

	PluginID    string   `json:"plugin_id"`
	PluginName  string   `json:"plugin_name"`
	Description string   `json:"description"`
	Solution    string   `json:"solution"`
	Synopsis    string   `json:"synopsis"`
	SeeAlso     []string `json:"see_also"`
	CVE         []string `json:"cve"`

	Severity         Severity `json:"severity"`
	State            string   `json:"state"`
	FirstFound       string   `json:"first_found"`
	LastFound        string   `json:"last_found"`
	ExploitAvailable bool     `json:"exploit_available"`
	HasPatch         bool     `json:"has_patch"`

	Vendor           string           `json:"vendor"`
	ProductFamily    string           `json:"product_family"`
	VendorConfidence Confidence       `json:"vendor_confidence"`
	DeviceType       DeviceType       `json:"device_type"`
	QuickWin         QuickWinCategory `json:"quick_win_category"`
}

// TagValue is a filter-discovery entry from the tags endpoint.
type TagValue struct {
	Category string `json:"category_name"`
	Value    string `json:"value"`
}
