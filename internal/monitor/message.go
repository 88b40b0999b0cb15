package monitor

import (
	"fmt"
	"strings"
	"time"

	"domainstack/internal/catalog"
	"domainstack/pkg/domain"
)

// Notification composition. The subject carries a single primary-change
// label picked by fixed priority (registration: registrar > transfer lock >
// nameservers > statuses; provider: dns > hosting > email; certificate: CA >
// issuer > validity); the body lists every changed sub-field.

func registrationMessage(domainName string, c domain.RegistrationChange, names *catalog.Catalog) (string, string) {
	var primary string
	var lines []string

	if c.RegistrarChanged {
		primary = "Registrar changed"
		lines = append(lines, fmt.Sprintf("Registrar: %s -> %s",
			providerName(names, c.Prev.RegistrarProviderID),
			providerName(names, c.Next.RegistrarProviderID)))
	}
	if c.TransferLockChanged {
		if primary == "" {
			primary = "Transfer lock changed"
		}
		lines = append(lines, fmt.Sprintf("Transfer lock: %s -> %s", c.Prev.TransferLock, c.Next.TransferLock))
	}
	if c.NameserversChanged {
		if primary == "" {
			primary = "Nameservers changed"
		}
		lines = append(lines, fmt.Sprintf("Nameservers changed: %s -> %s",
			hostList(c.Prev.Nameservers), hostList(c.Next.Nameservers)))
	}
	if c.StatusesChanged {
		if primary == "" {
			primary = "Status codes changed"
		}
		lines = append(lines, fmt.Sprintf("Status codes changed: %s -> %s",
			hostList(c.Prev.Statuses), hostList(c.Next.Statuses)))
	}

	subject := fmt.Sprintf("%s: %s", domainName, primary)

	return subject, strings.Join(lines, "\n")
}

func providerMessage(domainName string, c domain.ProviderChange, names *catalog.Catalog) (string, string) {
	var primary string
	var lines []string

	if c.DNSChanged {
		primary = "DNS provider changed"
		lines = append(lines, fmt.Sprintf("DNS provider: %s -> %s",
			providerName(names, c.Prev.DNSProviderID), providerName(names, c.Next.DNSProviderID)))
	}
	if c.HostingChanged {
		if primary == "" {
			primary = "Hosting provider changed"
		}
		lines = append(lines, fmt.Sprintf("Hosting provider: %s -> %s",
			providerName(names, c.Prev.HostingProviderID), providerName(names, c.Next.HostingProviderID)))
	}
	if c.EmailChanged {
		if primary == "" {
			primary = "Email provider changed"
		}
		lines = append(lines, fmt.Sprintf("Email provider: %s -> %s",
			providerName(names, c.Prev.EmailProviderID), providerName(names, c.Next.EmailProviderID)))
	}

	subject := fmt.Sprintf("%s: %s", domainName, primary)

	return subject, strings.Join(lines, "\n")
}

func certificateMessage(domainName string, c domain.CertificateChange, names *catalog.Catalog) (string, string) {
	var primary string
	var lines []string

	if c.CAChanged {
		primary = "Certificate authority changed"
		lines = append(lines, fmt.Sprintf("Certificate authority: %s -> %s",
			providerName(names, c.Prev.CAProviderID), providerName(names, c.Next.CAProviderID)))
	}
	if c.IssuerChanged {
		if primary == "" {
			primary = "Certificate issuer changed"
		}
		lines = append(lines, fmt.Sprintf("Issuer: %s -> %s",
			orNone(c.Prev.Issuer), orNone(c.Next.Issuer)))
	}
	if c.ValidToChanged {
		if primary == "" {
			primary = "Certificate renewed"
		}
		lines = append(lines, fmt.Sprintf("Valid until: %s -> %s",
			formatTime(c.Prev.ValidTo), formatTime(c.Next.ValidTo)))
	}

	subject := fmt.Sprintf("%s: %s", domainName, primary)

	return subject, strings.Join(lines, "\n")
}

func providerName(names *catalog.Catalog, id string) string {
	if id == "" {
		return "none"
	}

	return names.Name(id)
}

func hostList(hosts []string) string {
	if len(hosts) == 0 {
		return "none"
	}

	return strings.Join(hosts, ", ")
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}

	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	return t.UTC().Format(time.RFC3339)
}
