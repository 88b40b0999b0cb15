package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"domainstack/pkg/serrors"
)

// DNSResolver implements Resolver on top of net.Resolver with a bounded
// per-lookup timeout. A name that legitimately has no records is an
// authoritative negative result and is returned as an empty slice, not an
// error; only resolution failures map to serrors.ErrDNS.
type DNSResolver struct {
	resolver *net.Resolver
	timeout  time.Duration
}

// NewDNSResolver returns a resolver using the system DNS configuration. A
// non-positive timeout defaults to 5 seconds.
func NewDNSResolver(timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &DNSResolver{
		resolver: &net.Resolver{},
		timeout:  timeout,
	}
}

func (r *DNSResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	records, err := r.resolver.LookupTXT(ctx, name)

	return records, classifyDNSErr(err)
}

func (r *DNSResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	nss, err := r.resolver.LookupNS(ctx, name)
	if err != nil {
		return nil, classifyDNSErr(err)
	}

	hosts := make([]string, 0, len(nss))
	for _, ns := range nss {
		hosts = append(hosts, normalizeHost(ns.Host))
	}

	return hosts, nil
}

func (r *DNSResolver) LookupMX(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mxs, err := r.resolver.LookupMX(ctx, name)
	if err != nil {
		return nil, classifyDNSErr(err)
	}

	hosts := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		hosts = append(hosts, normalizeHost(mx.Host))
	}

	return hosts, nil
}

func (r *DNSResolver) LookupHost(ctx context.Context, name string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := r.resolver.LookupHost(ctx, name)

	return addrs, classifyDNSErr(err)
}

// normalizeHost lowercases a record host and strips the trailing dot.
func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// classifyDNSErr maps lookup failures to the DNS error kind. A NXDOMAIN-style
// "not found" answer is authoritative: records simply do not exist, so the
// caller gets an empty result rather than a retryable error.
func classifyDNSErr(err error) error {
	if err == nil {
		return nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return nil
	}

	return serrors.Wrap(serrors.ErrDNS, err, "dns lookup failed")
}
