package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"domainstack/pkg/domain"
)

func TestDiffRegistration(t *testing.T) {
	base := domain.RegistrationBaseline{
		RegistrarProviderID: "registrar-a",
		Nameservers:         []string{"ns1.example.net", "ns2.example.net"},
		TransferLock:        domain.TransferLockLocked,
		Statuses:            []string{"clientTransferProhibited"},
	}

	t.Run("identical baselines produce no change", func(t *testing.T) {
		c := diffRegistration(base, base)
		require.False(t, c.Any())
	})

	t.Run("nameserver order is ignored", func(t *testing.T) {
		next := base
		next.Nameservers = []string{"ns2.example.net", "ns1.example.net"}
		c := diffRegistration(base, next)
		require.False(t, c.Any())
	})

	t.Run("registrar change is flagged", func(t *testing.T) {
		next := base
		next.RegistrarProviderID = "registrar-b"
		c := diffRegistration(base, next)
		require.True(t, c.RegistrarChanged)
		require.False(t, c.TransferLockChanged)
		require.False(t, c.NameserversChanged)
	})

	t.Run("transfer lock unlock is flagged", func(t *testing.T) {
		next := base
		next.TransferLock = domain.TransferLockUnlocked
		c := diffRegistration(base, next)
		require.True(t, c.TransferLockChanged)
	})

	t.Run("new nameserver set is flagged", func(t *testing.T) {
		next := base
		next.Nameservers = []string{"ada.ns.cloudflare.com", "bob.ns.cloudflare.com"}
		c := diffRegistration(base, next)
		require.True(t, c.NameserversChanged)
	})
}

func TestDiffProviders(t *testing.T) {
	base := domain.ProviderBaseline{
		DNSProviderID:     "legacydns",
		HostingProviderID: "netlify",
		EmailProviderID:   "google-workspace",
	}
	all := providerPresence{dns: true, hosting: true, email: true}

	t.Run("identical baselines produce no change", func(t *testing.T) {
		require.False(t, diffProviders(base, base, all).Any())
	})

	t.Run("provider switch is flagged", func(t *testing.T) {
		next := base
		next.DNSProviderID = "cloudflare"
		c := diffProviders(base, next, all)
		require.True(t, c.DNSChanged)
		require.False(t, c.HostingChanged)
	})

	t.Run("provider disappearing is a change", func(t *testing.T) {
		next := base
		next.EmailProviderID = ""
		require.True(t, diffProviders(base, next, all).EmailChanged)
	})

	t.Run("missing data is excluded from the diff", func(t *testing.T) {
		// A failed homepage fetch yields an empty hosting id; without
		// presence it must NOT read as the provider disappearing.
		next := base
		next.HostingProviderID = ""
		c := diffProviders(base, next, providerPresence{dns: true, email: true})
		require.False(t, c.Any())
	})
}

func TestDiffCertificate(t *testing.T) {
	validTo := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	base := domain.CertificateBaseline{
		CAProviderID: "letsencrypt",
		Issuer:       "CN=R11,O=Let's Encrypt,C=US",
		ValidTo:      validTo,
	}

	t.Run("identical baselines produce no change", func(t *testing.T) {
		require.False(t, diffCertificate(base, base).Any())
	})

	t.Run("renewal moves only the validity window", func(t *testing.T) {
		next := base
		next.ValidTo = validTo.AddDate(0, 3, 0)
		c := diffCertificate(base, next)
		require.True(t, c.ValidToChanged)
		require.False(t, c.CAChanged)
		require.False(t, c.IssuerChanged)
	})

	t.Run("issuer switch flags both issuer and ca", func(t *testing.T) {
		next := base
		next.CAProviderID = "digicert"
		next.Issuer = "CN=DigiCert TLS RSA SHA256 2020 CA1"
		c := diffCertificate(base, next)
		require.True(t, c.CAChanged)
		require.True(t, c.IssuerChanged)
	})
}

func TestSameSet(t *testing.T) {
	require.True(t, sameSet(nil, nil))
	require.True(t, sameSet([]string{"a", "b"}, []string{"b", "a"}))
	require.True(t, sameSet([]string{"a", "a", "b"}, []string{"b", "a"}))
	require.False(t, sameSet([]string{"a"}, []string{"a", "b"}))
	require.False(t, sameSet([]string{"a"}, nil))
}
