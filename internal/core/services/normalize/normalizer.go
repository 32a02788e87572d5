package normalize

import (
	"time"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/telemetry"
)

// Normalize converts a raw export record into the canonical flat shape.
// It is a pure function and never fails: missing or malformed fields
// degrade to defaults instead of erroring. List-valued asset fields are
// reduced to their first element.
func Normalize(raw domain.RawRecord) domain.Vulnerability {
	hostname := raw.Asset.Hostname.First()
	if hostname == "" {
		hostname = "unknown"
	}

	state := raw.State
	if state == "" {
		state = "unknown"
	}

	cve := raw.Plugin.CVE
	if cve == nil {
		cve = []string{}
	}
	seeAlso := raw.Plugin.SeeAlso
	if seeAlso == nil {
		seeAlso = []string{}
	}

	return domain.Vulnerability{
		AssetUUID:       raw.Asset.UUID,
		Hostname:        hostname,
		IPV4:            raw.Asset.IPV4.First(),
		OperatingSystem: raw.Asset.OperatingSystem.First(),

		PluginID:    raw.Plugin.ID.String(),
		PluginName:  raw.Plugin.Name,
		Description: raw.Plugin.Description,
		Solution:    raw.Plugin.Solution,
		Synopsis:    raw.Plugin.Synopsis,
		SeeAlso:     seeAlso,
		CVE:         cve,

		Severity:         domain.NormalizeSeverity(raw.Severity),
		State:            state,
		FirstFound:       parseDate(raw.FirstFound),
		LastFound:        parseDate(raw.LastFound),
		ExploitAvailable: raw.Plugin.ExploitAvailable,
		HasPatch:         raw.Plugin.HasPatch,
	}
}

// Batch normalizes a full record list. The returned slice holds pointers
// so the enrichment passes can populate fields in place.
func Batch(raw []domain.RawRecord) []*domain.Vulnerability {
	out := make([]*domain.Vulnerability, len(raw))
	for i, r := range raw {
		v := Normalize(r)
		out[i] = &v
	}
	telemetry.RecordsProcessed.WithLabelValues("normalize").Add(float64(len(out)))
	return out
}

// parseDate accepts the ISO-8601-with-Z form the export API serves. On
// parse failure the original string is kept unmodified so the value stays
// available for manual inspection.
func parseDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("2006-01-02 15:04:05")
}
