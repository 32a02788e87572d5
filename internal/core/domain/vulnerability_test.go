package domain

import (
	"testing"
)

func TestSeverityScore(t *testing.T) {
	cases := map[Severity]int{
		SeverityCritical: 10,
		SeverityHigh:     5,
		SeverityMedium:   2,
		SeverityLow:      1,
		SeverityInfo:     0,
		Severity("???"):  0,
	}
	for sev, want := range cases {
		if got := sev.Score(); got != want {
			t.Errorf("Score(%s) = %d, want %d", sev, got, want)
		}
	}
}

func TestNormalizeSeverity(t *testing.T) {
	cases := map[string]Severity{
		"critical": SeverityCritical,
		"CRITICAL": SeverityCritical,
		" high ":   SeverityHigh,
		"medium":   SeverityMedium,
		"low":      SeverityLow,
		"info":     SeverityInfo,
		"":         SeverityInfo,
		"bogus":    SeverityInfo,
	}
	for raw, want := range cases {
		if got := NormalizeSeverity(raw); got != want {
			t.Errorf("NormalizeSeverity(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestParseDeviceType(t *testing.T) {
	if dt, ok := ParseDeviceType(" Server "); !ok || dt != DeviceServer {
		t.Errorf("ParseDeviceType(Server) = %s, %v", dt, ok)
	}
	if _, ok := ParseDeviceType("mainframe"); ok {
		t.Error("ParseDeviceType must reject unknown types")
	}
}

func TestFilterSetMergeOverlayWins(t *testing.T) {
	base := FilterSet{"state": []string{"open", "reopened"}, "tag": "x"}
	overlay := FilterSet{"state": []string{"open"}}

	merged := base.Merge(overlay)

	state, ok := merged["state"].([]string)
	if !ok || len(state) != 1 || state[0] != "open" {
		t.Errorf("overlay value must win, got %v", merged["state"])
	}
	if merged["tag"] != "x" {
		t.Error("non-colliding base keys must survive")
	}
	if len(base["state"].([]string)) != 2 {
		t.Error("Merge must not mutate the receiver")
	}
}

func TestFilterSetCanonicalIsKeyOrderIndependent(t *testing.T) {
	a := FilterSet{"b": 2, "a": 1}
	b := FilterSet{"a": 1, "b": 2}

	ja, err := a.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	jb, err := b.Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if string(ja) != string(jb) {
		t.Errorf("canonical forms differ: %s vs %s", ja, jb)
	}

	var nilSet FilterSet
	if got, err := nilSet.Canonical(); err != nil || string(got) != "{}" {
		t.Errorf("nil set must encode as {}, got %s (%v)", got, err)
	}
}
