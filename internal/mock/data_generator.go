package mock

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
)

// Plugin templates for realistic mock findings
var pluginTemplates = []struct {
	Name     string
	Synopsis string
	Solution string
	Severity string
	HasPatch bool
	CVE      []string
}{
	{"Apache HTTP Server < 2.4.54 Multiple Vulnerabilities", "The remote web server is affected by multiple vulnerabilities.", "Upgrade to Apache HTTP Server 2.4.54 or later.", "critical", true, []string{"CVE-2022-31813", "CVE-2022-26377"}},
	{"Microsoft Windows SMBv1 Multiple Vulnerabilities", "The remote Windows host supports SMBv1.", "Disable SMBv1 per vendor guidance.", "critical", true, []string{"CVE-2017-0144"}},
	{"OpenSSL < 1.1.1t Vulnerability", "The remote service is affected by an information disclosure issue.", "Upgrade to OpenSSL 1.1.1t or later.", "high", true, []string{"CVE-2023-0286"}},
	{"SSL Certificate Cannot Be Trusted", "The SSL certificate for this service cannot be trusted.", "Purchase or generate a proper SSL certificate.", "medium", false, nil},
	{"Microsoft .NET Framework Unsupported Version Detection", "The remote host has an unsupported version of the .NET Framework installed.", "Upgrade to a supported .NET Framework version.", "high", false, nil},
	{"PHP < 8.0.28 Multiple Vulnerabilities", "The version of PHP running on the remote host is affected by multiple vulnerabilities.", "Upgrade to PHP version 8.0.28 or later.", "high", true, []string{"CVE-2023-0662"}},
	{"Oracle Java SE Multiple Vulnerabilities", "The remote host has an application installed that is affected by multiple vulnerabilities.", "Upgrade to the latest Oracle Java SE CPU release.", "medium", true, nil},
	{"Nginx < 1.23.2 Memory Corruption", "The remote web server is affected by a memory corruption vulnerability.", "Upgrade to nginx 1.23.2 or later.", "medium", true, []string{"CVE-2022-41741"}},
	{"SSH Weak Key Exchange Algorithms Enabled", "The remote SSH server is configured to allow weak key exchange algorithms.", "Disable the weak algorithms.", "low", false, nil},
	{"Microsoft Windows Server 2008 Unsupported Operating System", "The remote operating system is no longer supported.", "Upgrade to a supported operating system.", "critical", false, nil},
}

var mockOperatingSystems = []string{
	"Microsoft Windows Server 2019 Standard",
	"Microsoft Windows Server 2016 Datacenter",
	"Microsoft Windows 10 Enterprise",
	"Ubuntu 22.04.3 LTS",
	"Red Hat Enterprise Linux 8.8",
	"CentOS Linux 7",
	"Cisco IOS 15.2",
	"Debian GNU/Linux 11",
}

var mockHostPrefixes = []string{"srv", "db", "web", "app", "dc", "ws", "fw"}

// mockHost is one generated asset reused across its findings.
type mockHost struct {
	UUID     string
	Hostname string
	IPV4     string
	OS       string
}

// DataGenerator produces deterministic-shaped mock export records.
type DataGenerator struct {
	rng   *rand.Rand
	hosts []mockHost
}

// NewDataGenerator seeds a generator with the given number of hosts.
func NewDataGenerator(seed int64, hostCount int) *DataGenerator {
	rng := rand.New(rand.NewSource(seed))
	hosts := make([]mockHost, hostCount)
	for i := range hosts {
		prefix := mockHostPrefixes[rng.Intn(len(mockHostPrefixes))]
		hosts[i] = mockHost{
			UUID:     uuid.NewString(),
			Hostname: fmt.Sprintf("%s-%03d.corp.local", prefix, i+1),
			IPV4:     fmt.Sprintf("10.%d.%d.%d", rng.Intn(4), rng.Intn(255), 1+rng.Intn(250)),
			OS:       mockOperatingSystems[rng.Intn(len(mockOperatingSystems))],
		}
	}
	return &DataGenerator{rng: rng, hosts: hosts}
}

// Records generates n export records spread across the generated hosts.
func (g *DataGenerator) Records(n int) []domain.RawRecord {
	records := make([]domain.RawRecord, 0, n)
	now := time.Now().UTC()

	for i := 0; i < n; i++ {
		host := g.hosts[g.rng.Intn(len(g.hosts))]
		tpl := pluginTemplates[g.rng.Intn(len(pluginTemplates))]
		first := now.Add(-time.Duration(1+g.rng.Intn(90)) * 24 * time.Hour)

		records = append(records, domain.RawRecord{
			Asset: domain.RawAsset{
				UUID:            host.UUID,
				Hostname:        domain.FlexString{host.Hostname},
				IPV4:            domain.FlexString{host.IPV4},
				OperatingSystem: domain.FlexString{host.OS},
			},
			Plugin: domain.RawPlugin{
				ID:               json.Number(fmt.Sprintf("%d", 10000+g.rng.Intn(90000))),
				Name:             tpl.Name,
				Description:      tpl.Synopsis,
				Solution:         tpl.Solution,
				Synopsis:         tpl.Synopsis,
				CVE:              tpl.CVE,
				HasPatch:         tpl.HasPatch,
				ExploitAvailable: g.rng.Intn(5) == 0,
			},
			Severity:   tpl.Severity,
			State:      "open",
			FirstFound: first.Format(time.RFC3339),
			LastFound:  now.Format(time.RFC3339),
		})
	}
	return records
}
