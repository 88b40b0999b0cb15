package monitor

import (
	"sort"

	"domainstack/pkg/domain"
)

// diffRegistration compares the registration baseline against freshly
// classified facts. Nameserver and status sets compare order-insensitively.
func diffRegistration(prev, next domain.RegistrationBaseline) domain.RegistrationChange {
	return domain.RegistrationChange{
		Prev:                prev,
		Next:                next,
		RegistrarChanged:    prev.RegistrarProviderID != next.RegistrarProviderID,
		TransferLockChanged: prev.TransferLock != next.TransferLock,
		NameserversChanged:  !sameSet(prev.Nameservers, next.Nameservers),
		StatusesChanged:     !sameSet(prev.Statuses, next.Statuses),
	}
}

// providerPresence flags which provider sub-fields have usable fresh data.
// A failed fetch must not read as "provider disappeared", so sub-fields
// without data are excluded from the diff.
type providerPresence struct {
	dns     bool
	hosting bool
	email   bool
}

// diffProviders compares provider ids per sub-field. An id appearing
// (""->id) or disappearing (id->"") both count as changes, but only when the
// underlying lookup actually produced data.
func diffProviders(prev, next domain.ProviderBaseline, have providerPresence) domain.ProviderChange {
	c := domain.ProviderChange{Prev: prev, Next: next}
	if have.dns {
		c.DNSChanged = prev.DNSProviderID != next.DNSProviderID
	}
	if have.hosting {
		c.HostingChanged = prev.HostingProviderID != next.HostingProviderID
	}
	if have.email {
		c.EmailChanged = prev.EmailProviderID != next.EmailProviderID
	}

	return c
}

// diffCertificate compares the certificate baseline against the fresh leaf.
func diffCertificate(prev, next domain.CertificateBaseline) domain.CertificateChange {
	return domain.CertificateChange{
		Prev:           prev,
		Next:           next,
		CAChanged:      prev.CAProviderID != next.CAProviderID,
		IssuerChanged:  prev.Issuer != next.Issuer,
		ValidToChanged: !prev.ValidTo.Equal(next.ValidTo),
	}
}

// sameSet reports whether two string slices contain the same elements,
// ignoring order and duplicates.
func sameSet(a, b []string) bool {
	return equalSorted(dedupeSorted(a), dedupeSorted(b))
}

func dedupeSorted(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i > 0 && s == out[i-1] {
			continue
		}
		out[n] = s
		n++
	}

	return out[:n]
}

func equalSorted(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
