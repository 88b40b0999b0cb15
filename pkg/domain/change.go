package domain

import "time"

// ChangeCategory identifies which diff pipeline produced a change event. It
// doubles as the notification preference category.
type ChangeCategory string

const (
	// ChangeRegistration covers registrar, transfer lock, nameserver and
	// status-code changes.
	ChangeRegistration ChangeCategory = "registration"
	// ChangeProvider covers dns/hosting/email provider changes.
	ChangeProvider ChangeCategory = "provider"
	// ChangeCertificate covers CA, issuer and leaf validity changes.
	ChangeCertificate ChangeCategory = "certificate"
)

// RegistrationChange describes a detected diff in the registration category.
// Each *Changed flag marks which sub-field differs between Prev and Next.
type RegistrationChange struct {
	Prev RegistrationBaseline
	Next RegistrationBaseline

	RegistrarChanged    bool
	TransferLockChanged bool
	NameserversChanged  bool
	StatusesChanged     bool
}

// Any reports whether at least one sub-field changed.
func (c RegistrationChange) Any() bool {
	return c.RegistrarChanged || c.TransferLockChanged || c.NameserversChanged || c.StatusesChanged
}

// ProviderChange describes a detected diff in the provider category. A
// provider appearing (""->id) or disappearing (id->"") both count as changes.
type ProviderChange struct {
	Prev ProviderBaseline
	Next ProviderBaseline

	DNSChanged     bool
	HostingChanged bool
	EmailChanged   bool
}

// Any reports whether at least one sub-field changed.
func (c ProviderChange) Any() bool {
	return c.DNSChanged || c.HostingChanged || c.EmailChanged
}

// CertificateChange describes a detected diff in the certificate category,
// tracking the leaf certificate only.
type CertificateChange struct {
	Prev CertificateBaseline
	Next CertificateBaseline

	CAChanged      bool
	IssuerChanged  bool
	ValidToChanged bool
}

// Any reports whether at least one sub-field changed.
func (c CertificateChange) Any() bool {
	return c.CAChanged || c.IssuerChanged || c.ValidToChanged
}

// ChangeRunResult summarizes one coordinated change-detection run.
type ChangeRunResult struct {
	// SkipReason is non-empty when the run was skipped entirely, e.g.
	// "snapshot_not_found".
	SkipReason string

	RegistrationChanges bool
	ProviderChanges     bool
	CertificateChanges  bool

	RanAt time.Time
}
