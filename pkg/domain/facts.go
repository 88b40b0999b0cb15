package domain

import "time"

// RegistrationFacts is the normalized view of a WHOIS/RDAP lookup for a
// domain. It is persisted raw on every monitoring run and diffed against the
// snapshot baseline.
type RegistrationFacts struct {
	// Registered reports whether the domain currently has an active
	// registration. Registration diffs are skipped when false.
	Registered bool `json:"registered"`
	// RegistrarName is the registrar name as reported by the registry.
	RegistrarName string `json:"registrarName,omitempty"`
	// Nameservers are the delegated nameserver hosts, lowercased.
	Nameservers []string `json:"nameservers,omitempty"`
	// Statuses are the EPP status codes, e.g. "clientTransferProhibited".
	Statuses []string `json:"statuses,omitempty"`
	// TransferLock is derived from the status codes.
	TransferLock TransferLock `json:"transferLock"`
	// ExpiresAt is the registration expiry, when exposed by the registry.
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// DNSFacts holds the record sets fetched during a monitoring run.
type DNSFacts struct {
	A  []string `json:"a,omitempty"`
	NS []string `json:"ns,omitempty"`
	MX []string `json:"mx,omitempty"`
}

// Certificate describes one certificate in a served TLS chain. Only the leaf
// (first) certificate participates in change detection.
type Certificate struct {
	// Issuer is the issuer distinguished-name string.
	Issuer string `json:"issuer"`
	// Subject is the subject common name.
	Subject string `json:"subject"`
	// ValidFrom is the NotBefore timestamp.
	ValidFrom time.Time `json:"validFrom"`
	// ValidTo is the NotAfter timestamp.
	ValidTo time.Time `json:"validTo"`
}
