package domain

// ProviderCategory groups providers by the service they supply for a domain.
type ProviderCategory string

const (
	// ProviderRegistrar identifies domain registrars.
	ProviderRegistrar ProviderCategory = "registrar"
	// ProviderDNS identifies authoritative DNS operators.
	ProviderDNS ProviderCategory = "dns"
	// ProviderHosting identifies web hosting providers.
	ProviderHosting ProviderCategory = "hosting"
	// ProviderEmail identifies mail providers.
	ProviderEmail ProviderCategory = "email"
	// ProviderCA identifies certificate authorities.
	ProviderCA ProviderCategory = "ca"
)

// Provider is a catalog entry describing a known provider and the
// classification rule that detects it. Rule holds the serialized boolean rule
// tree evaluated by the rules package.
type Provider struct {
	// ID is the stable catalog identifier, e.g. "cloudflare".
	ID string `json:"id"`
	// Name is the human-readable provider name used in notifications.
	Name string `json:"name"`
	// Category is the service category this entry classifies.
	Category ProviderCategory `json:"category"`
	// Rule is the serialized classification rule tree.
	Rule []byte `json:"rule"`
}

// TransferLock is the tri-state registrar transfer lock status. Unknown is
// used when the registry does not expose lock information.
type TransferLock string

const (
	TransferLockLocked   TransferLock = "locked"
	TransferLockUnlocked TransferLock = "unlocked"
	TransferLockUnknown  TransferLock = "unknown"
)
