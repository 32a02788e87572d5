package rules

import "github.com/lcalzada-xor/vulnsync/internal/core/domain"

// defaultRules is the initial high-priority rule set. Seed inserts these
// idempotently, keyed on vendor+product.
var defaultRules = []domain.VendorRule{
	// High-priority exact matches
	{VendorName: "Microsoft", ProductFamily: "Windows Server", RegexPattern: `Windows Server 20\d{2}`, Priority: 100},
	{VendorName: "Microsoft", ProductFamily: "Exchange", RegexPattern: `Microsoft Exchange`, Priority: 100},
	{VendorName: "Microsoft", ProductFamily: "SQL Server", RegexPattern: `Microsoft SQL Server|MS SQL`, Priority: 100},
	{VendorName: "Microsoft", ProductFamily: "SharePoint", RegexPattern: `Microsoft SharePoint`, Priority: 100},

	// Adobe
	{VendorName: "Adobe", ProductFamily: "Acrobat", RegexPattern: `Adobe (Acrobat|Reader)`, Priority: 90},
	{VendorName: "Adobe", ProductFamily: "Flash", Keyword: "adobe flash", Priority: 90},

	// Google
	{VendorName: "Google", ProductFamily: "Chrome", Keyword: "google chrome", Priority: 90},
	{VendorName: "Google", ProductFamily: "Android", Keyword: "android", Priority: 90},

	// Apple
	{VendorName: "Apple", ProductFamily: "macOS", Keyword: "macos", Priority: 90},
	{VendorName: "Apple", ProductFamily: "iOS", RegexPattern: `\biOS\b`, Priority: 90},

	// Atlassian
	{VendorName: "Atlassian", ProductFamily: "Jira", Keyword: "jira", Priority: 85},
	{VendorName: "Atlassian", ProductFamily: "Confluence", Keyword: "confluence", Priority: 85},

	{VendorName: "Jenkins", ProductFamily: "Jenkins", Keyword: "jenkins", Priority: 85},
	{VendorName: "GitLab", ProductFamily: "GitLab", Keyword: "gitlab", Priority: 85},

	// Generic SSL/TLS
	{VendorName: "SSL/TLS", Keyword: "ssl certificate", Priority: 50},
	{VendorName: "SSL/TLS", Keyword: "tls", Priority: 50},
}
