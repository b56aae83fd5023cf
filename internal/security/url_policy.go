package security

import (
	"net/url"
	"strings"

	"github.com/clawft/clawft/internal/net/ssrf"
)

// cloudMetadataHosts are always blocked, even when AllowPrivate is true:
// AllowPrivate disables the private-IP check, not the cloud-metadata check.
var cloudMetadataHosts = map[string]bool{
	"169.254.169.254":         true,
	"fd00:ec2::254":           true,
	"metadata.google.internal": true,
}

// UrlPolicy governs which URLs a tool may fetch.
type UrlPolicy struct {
	Enabled        bool
	AllowPrivate   bool
	AllowedDomains []string
	BlockedDomains []string
}

// Validate rejects rawURL unless it is permitted by the policy. On
// rejection it returns a *SecurityViolation or *PermissionDenied.
func (p UrlPolicy) Validate(rawURL string) error {
	if !p.Enabled {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return NewSecurityViolation("invalid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return NewSecurityViolation("unsupported scheme")
	}

	host := parsed.Hostname()
	if host == "" {
		return NewSecurityViolation("missing host")
	}

	if cloudMetadataHosts[strings.ToLower(host)] {
		return NewPermissionDenied(rawURL)
	}

	for _, blocked := range p.BlockedDomains {
		if matchesDomain(host, blocked) {
			return NewPermissionDenied(rawURL)
		}
	}

	if len(p.AllowedDomains) > 0 {
		allowed := false
		for _, allow := range p.AllowedDomains {
			if matchesDomain(host, allow) {
				allowed = true
				break
			}
		}
		if !allowed {
			return NewPermissionDenied(rawURL)
		}
	}

	if p.AllowPrivate {
		return nil
	}

	if ssrf.IsBlockedHostname(host) || ssrf.IsPrivateIPAddress(host) {
		return NewSecurityViolation("blocked: private/internal host")
	}
	if err := ssrf.ValidatePublicHostname(host); err != nil {
		return NewSecurityViolation("blocked: private/internal host")
	}

	return nil
}

func matchesDomain(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}
