package domain

import "time"

// VendorRule is a persisted vendor/product detection rule.
// Rules are evaluated in descending priority order; a rule carries a regex
// pattern, a keyword, or both (regex matches outrank keyword matches).
type VendorRule struct {
	ID            string
	VendorName    string
	ProductFamily string
	RegexPattern  string
	Keyword       string
	Priority      int
	Enabled       bool
	CreatedAt     time.Time
	UpdatedBy     string
}

// VendorMatch is the outcome of vendor/product detection for one finding.
type VendorMatch struct {
	Vendor        string
	ProductFamily string
	Confidence    Confidence
}

// Override maps a lowercase OS substring pattern to a device type.
// Overrides are user-owned and checked in stored order before any
// built-in classification rule.
type Override struct {
	Pattern    string     `json:"pattern"`
	DeviceType DeviceType `json:"device_type"`
}
