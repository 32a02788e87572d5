package quickwin

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// Version-comparison phrasings that indicate a simple version bump fixes
// the finding.
var versionPatterns = []string{
	`<\s*\d+\.\d+`,
	`prior to\s+\d+\.\d+`,
	`before\s+\d+\.\d+`,
	`less than\s+\d+\.\d+`,
	`earlier than\s+\d+\.\d+`,
	`below\s+\d+\.\d+`,
	`upgrade to\s+\d+\.\d+`,
	`update to\s+\d+\.\d+`,
}

// Keywords that indicate an end-of-life or abandoned product.
var unsupportedKeywords = []string{
	"unsupported",
	"end of life",
	"end-of-life",
	"eol",
	"deprecated",
	"no longer supported",
	"not supported",
	"reached end of support",
	"extended support ended",
	"obsolete",
	"discontinued",
}

// Detector flags findings resolvable with low effort: a simple version
// bump or decommissioning an end-of-life product.
type Detector struct {
	versionRe *regexp.Regexp
}

// New compiles the combined version-threshold pattern.
func New() *Detector {
	return &Detector{
		versionRe: regexp.MustCompile(`(?i)` + strings.Join(versionPatterns, "|")),
	}
}

// IsVersionThreshold reports whether the finding's text names a version
// comparison and a patch is available.
func (d *Detector) IsVersionThreshold(v *domain.Vulnerability) bool {
	text := strings.ToLower(v.PluginName + " " + v.Description + " " + v.Solution)
	return d.versionRe.MatchString(text) && v.HasPatch
}

// IsUnsupportedProduct reports whether the finding's text (including the
// synopsis) mentions an end-of-life condition.
func (d *Detector) IsUnsupportedProduct(v *domain.Vulnerability) bool {
	text := strings.ToLower(v.PluginName + " " + v.Description + " " + v.Solution + " " + v.Synopsis)
	for _, kw := range unsupportedKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// DetectBatch categorizes every finding in place and returns the buckets.
// Version-threshold is checked first; a record matching both cues gets
// version_threshold (mutual exclusivity by priority, not by content).
func (d *Detector) DetectBatch(vulns []*domain.Vulnerability) domain.QuickWinResult {
	var result domain.QuickWinResult

	for _, v := range vulns {
		switch {
		case d.IsVersionThreshold(v):
			v.QuickWin = domain.QuickWinVersionThreshold
			result.VersionThreshold = append(result.VersionThreshold, v)
		case d.IsUnsupportedProduct(v):
			v.QuickWin = domain.QuickWinUnsupportedProduct
			result.UnsupportedProduct = append(result.UnsupportedProduct, v)
		default:
			v.QuickWin = ""
		}
	}

	result.Total = len(result.VersionThreshold) + len(result.UnsupportedProduct)
	slog.Info("quick wins detected",
		"total", result.Total,
		"version_threshold", len(result.VersionThreshold),
		"unsupported_product", len(result.UnsupportedProduct))
	return result
}

// Summary reduces already-categorized findings to severity counts. It
// reads the QuickWin field set by DetectBatch and never re-runs detection.
func Summary(vulns []*domain.Vulnerability) domain.QuickWinSummary {
	var versionThreshold, unsupportedProduct []*domain.Vulnerability
	for _, v := range vulns {
		switch v.QuickWin {
		case domain.QuickWinVersionThreshold:
			versionThreshold = append(versionThreshold, v)
		case domain.QuickWinUnsupportedProduct:
			unsupportedProduct = append(unsupportedProduct, v)
		}
	}

	return domain.QuickWinSummary{
		Total:              len(versionThreshold) + len(unsupportedProduct),
		VersionThreshold:   bucketSummary(versionThreshold),
		UnsupportedProduct: bucketSummary(unsupportedProduct),
	}
}

func bucketSummary(vulns []*domain.Vulnerability) domain.QuickWinBucketSummary {
	s := domain.QuickWinBucketSummary{Count: len(vulns)}
	for _, v := range vulns {
		switch v.Severity {
		case domain.SeverityCritical:
			s.Critical++
		case domain.SeverityHigh:
			s.High++
		}
	}
	return s
}
