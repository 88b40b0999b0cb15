package domain

import "time"

// Snapshot holds the last-acknowledged facts for a tracked domain, used as
// the diff baseline by the change detector. It is created empty at first
// verification. Each category is committed independently, and only after a
// notification for a detected change in that category was dispatched.
type Snapshot struct {
	TrackedDomainID TrackedDomainID `json:"trackedDomainId"`

	// Registration category.
	RegistrarProviderID string       `json:"registrarProviderId,omitempty"`
	Nameservers         []string     `json:"nameservers,omitempty"`
	TransferLock        TransferLock `json:"transferLock,omitempty"`
	Statuses            []string     `json:"statuses,omitempty"`

	// Provider category. Empty string means "no provider detected".
	DNSProviderID     string `json:"dnsProviderId,omitempty"`
	HostingProviderID string `json:"hostingProviderId,omitempty"`
	EmailProviderID   string `json:"emailProviderId,omitempty"`

	// Certificate category, tracking the leaf certificate only.
	CAProviderID string    `json:"caProviderId,omitempty"`
	CertIssuer   string    `json:"certIssuer,omitempty"`
	CertValidTo  time.Time `json:"certValidTo,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RegistrationBaseline is the registration slice of a snapshot.
type RegistrationBaseline struct {
	RegistrarProviderID string
	Nameservers         []string
	TransferLock        TransferLock
	Statuses            []string
}

// ProviderBaseline is the provider slice of a snapshot.
type ProviderBaseline struct {
	DNSProviderID     string
	HostingProviderID string
	EmailProviderID   string
}

// CertificateBaseline is the certificate slice of a snapshot.
type CertificateBaseline struct {
	CAProviderID string
	Issuer       string
	ValidTo      time.Time
}

// Registration returns the registration slice of the snapshot.
func (s Snapshot) Registration() RegistrationBaseline {
	return RegistrationBaseline{
		RegistrarProviderID: s.RegistrarProviderID,
		Nameservers:         s.Nameservers,
		TransferLock:        s.TransferLock,
		Statuses:            s.Statuses,
	}
}

// Providers returns the provider slice of the snapshot.
func (s Snapshot) Providers() ProviderBaseline {
	return ProviderBaseline{
		DNSProviderID:     s.DNSProviderID,
		HostingProviderID: s.HostingProviderID,
		EmailProviderID:   s.EmailProviderID,
	}
}

// Certificate returns the certificate slice of the snapshot.
func (s Snapshot) Certificate() CertificateBaseline {
	return CertificateBaseline{
		CAProviderID: s.CAProviderID,
		Issuer:       s.CertIssuer,
		ValidTo:      s.CertValidTo,
	}
}
