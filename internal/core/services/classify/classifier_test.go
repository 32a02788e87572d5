package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// memOverrides is an in-memory ports.OverrideStore for tests.
type memOverrides struct {
	entries []domain.Override
	err     error
}

func (m *memOverrides) List() ([]domain.Override, error) { return m.entries, m.err }
func (m *memOverrides) Add(pattern string, dt domain.DeviceType) error {
	m.entries = append(m.entries, domain.Override{Pattern: pattern, DeviceType: dt})
	return nil
}
func (m *memOverrides) Remove(string) error { return nil }
func (m *memOverrides) Reload() error       { return nil }

func TestClassifyBuiltinRules(t *testing.T) {
	c := New(nil)

	cases := map[string]domain.DeviceType{
		"Microsoft Windows Server 2019 Standard": domain.DeviceServer,
		"Windows Server 2022 Datacenter":         domain.DeviceServer,
		"Ubuntu 22.04.3 LTS":                     domain.DeviceServer,
		"Red Hat Enterprise Linux 8.8":           domain.DeviceServer,
		"CentOS Linux 7":                         domain.DeviceServer,
		"Debian GNU/Linux 11":                    domain.DeviceServer,
		"Microsoft Windows 10 Enterprise":        domain.DeviceWorkstation,
		"Microsoft Windows 11 Pro":               domain.DeviceWorkstation,
		"macOS Ventura 13.2":                     domain.DeviceWorkstation,
		"Custom OS Desktop":                      domain.DeviceWorkstation,
		"Cisco IOS 15.2":                         domain.DeviceNetwork,
		"FortiNet FortiGate":                     domain.DeviceNetwork,
		"Mystery Appliance 9000":                 domain.DeviceUnknown,
		"":                                       domain.DeviceUnknown,
	}

	for os, want := range cases {
		assert.Equal(t, want, c.Classify(os), "os=%q", os)
	}
}

func TestClassifyOverridesWinOverBuiltins(t *testing.T) {
	store := &memOverrides{entries: []domain.Override{
		{Pattern: "custom os", DeviceType: domain.DeviceServer},
	}}
	c := New(store)

	// "Custom OS Desktop" would be a workstation by the builtin desktop
	// rule; the override takes precedence.
	assert.Equal(t, domain.DeviceServer, c.Classify("Custom OS Desktop"))

	// Non-matching strings still fall through to the builtins.
	assert.Equal(t, domain.DeviceWorkstation, c.Classify("Windows 10 Pro"))
}

func TestClassifyOverridesCheckedInStoredOrder(t *testing.T) {
	store := &memOverrides{entries: []domain.Override{
		{Pattern: "appliance", DeviceType: domain.DeviceNetwork},
		{Pattern: "vendor appliance", DeviceType: domain.DeviceServer},
	}}
	c := New(store)

	assert.Equal(t, domain.DeviceNetwork, c.Classify("Vendor Appliance v2"))
}

func TestClassifyStoreErrorFallsBackToBuiltins(t *testing.T) {
	c := New(&memOverrides{err: errors.New("disk gone")})
	assert.Equal(t, domain.DeviceServer, c.Classify("Windows Server 2016"))
}

func TestEnrichBatch(t *testing.T) {
	c := New(nil)
	vulns := []*domain.Vulnerability{
		{OperatingSystem: "Windows Server 2019"},
		{OperatingSystem: "Windows 11"},
		{OperatingSystem: ""},
	}
	c.EnrichBatch(vulns)

	assert.Equal(t, domain.DeviceServer, vulns[0].DeviceType)
	assert.Equal(t, domain.DeviceWorkstation, vulns[1].DeviceType)
	assert.Equal(t, domain.DeviceUnknown, vulns[2].DeviceType)
}
