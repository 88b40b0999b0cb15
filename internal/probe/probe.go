// Package probe contains the network collaborators the verification and
// monitoring engines depend on: a DNS resolver, a raw TLS certificate
// grabber, a size-capped redirect-following HTTP fetcher, and an RDAP client
// for registration data. All operations carry short timeouts; callers decide
// which failures are retryable.
package probe

import (
	"context"

	"domainstack/pkg/domain"
)

// Resolver is the DNS lookup abstraction used by verification and monitoring.
// The net.Resolver-backed implementation is in dns.go; tests substitute fakes.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupNS(ctx context.Context, name string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]string, error)
	LookupHost(ctx context.Context, name string) ([]string, error)
}

// CertGrabber fetches the TLS certificate chain a host serves, leaf first.
type CertGrabber interface {
	CertChain(ctx context.Context, host string) ([]domain.Certificate, error)
}

// Fetcher performs redirect-following, size-capped HTTP GETs. Body returns
// the response body; Headers returns the final response's headers with the
// body discarded. Both treat non-2xx statuses as fetch errors.
type Fetcher interface {
	Body(ctx context.Context, url string) ([]byte, error)
	Headers(ctx context.Context, url string) (map[string]string, error)
}

// RegistrationClient looks up WHOIS/RDAP registration facts for an apex
// domain.
type RegistrationClient interface {
	Lookup(ctx context.Context, domainName string) (*domain.RegistrationFacts, error)
}
