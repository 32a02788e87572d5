package classify

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/core/ports"
)

// Built-in server signatures. Generic "server" must stay last so it only
// catches what the specific patterns missed.
var serverPatterns = compileAll(
	`windows\s+server`,
	`windows\s+2008`,
	`windows\s+2012`,
	`windows\s+2016`,
	`windows\s+2019`,
	`windows\s+2022`,
	`windows\s+2025`,
	`ubuntu\s+server`,
	`ubuntu`, // most Ubuntu fleet is server unless tagged Desktop
	`red\s+hat`,
	`rhel`,
	`centos`,
	`rocky\s+linux`,
	`almalinux`,
	`debian`,
	`fedora`,
	`oracle\s+linux`,
	`suse\s+linux`,
	`opensuse`,
	`amazon\s+linux`,
	`arch\s+linux`,
	`kali\s+linux`,
	`linux`,
	`server`,
)

var workstationPatterns = compileAll(
	`windows\s+10`,
	`windows\s+11`,
	`windows\s+7`,
	`windows\s+8`,
	`windows\s+xp`,
	`macos`,
	`mac\s+os`,
	`desktop`,
	`workstation`,
)

var networkKeywords = []string{"cisco", "juniper", "fortinet", "palo alto", "router", "switch", "firewall"}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Classifier assigns a coarse device category from an OS string.
// User overrides from the injected store always win over built-in rules.
type Classifier struct {
	overrides ports.OverrideStore
}

// New creates a classifier backed by the given override store.
func New(overrides ports.OverrideStore) *Classifier {
	return &Classifier{overrides: overrides}
}

// Classify resolves in order: user overrides (stored order, substring
// match on the lowercase OS string), built-in server signatures, built-in
// workstation signatures, network-vendor keywords, unknown.
func (c *Classifier) Classify(osString string) domain.DeviceType {
	osString = strings.TrimSpace(osString)
	if osString == "" {
		return domain.DeviceUnknown
	}
	lower := strings.ToLower(osString)

	if c.overrides != nil {
		entries, err := c.overrides.List()
		if err != nil {
			slog.Warn("override store unavailable, using built-in rules only", "error", err)
		}
		for _, o := range entries {
			if strings.Contains(lower, o.Pattern) {
				return o.DeviceType
			}
		}
	}

	for _, p := range serverPatterns {
		if p.MatchString(osString) {
			return domain.DeviceServer
		}
	}
	for _, p := range workstationPatterns {
		if p.MatchString(osString) {
			return domain.DeviceWorkstation
		}
	}
	for _, kw := range networkKeywords {
		if strings.Contains(lower, kw) {
			return domain.DeviceNetwork
		}
	}
	return domain.DeviceUnknown
}

// EnrichBatch populates DeviceType on every record in place.
func (c *Classifier) EnrichBatch(vulns []*domain.Vulnerability) {
	for _, v := range vulns {
		v.DeviceType = c.Classify(v.OperatingSystem)
	}
}
