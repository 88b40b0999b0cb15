package verify

import (
	"fmt"
	"strings"
)

// NormalizeDomain returns the canonical form of a user-supplied domain name.
//
// The normalization rules are intentionally strict to keep one tracked row
// per domain:
//   - Strip a scheme prefix and anything after the first "/"
//   - Lower-case the name and strip a trailing dot
//   - Reject names without at least two labels, empty labels, labels over 63
//     octets, and characters outside [a-z0-9-]
//
// If the input cannot be normalized into a plausible DNS name, an error is
// returned.
func NormalizeDomain(raw string) (string, error) {
	name := strings.TrimSpace(strings.ToLower(raw))
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	if i := strings.Index(name, "/"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".")

	if name == "" {
		return "", fmt.Errorf("empty domain name")
	}
	if len(name) > 253 {
		return "", fmt.Errorf("domain name too long")
	}

	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("domain name needs at least two labels: %q", name)
	}
	for _, label := range labels {
		if label == "" {
			return "", fmt.Errorf("empty label in domain name: %q", name)
		}
		if len(label) > 63 {
			return "", fmt.Errorf("label too long in domain name: %q", name)
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "", fmt.Errorf("label has leading or trailing hyphen: %q", name)
		}
		for _, r := range label {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
				return "", fmt.Errorf("invalid character %q in domain name: %q", r, name)
			}
		}
	}

	return name, nil
}
