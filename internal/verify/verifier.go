package verify

import (
	"context"

	"domainstack/internal/probe"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"

	"go.uber.org/zap"
)

// Result is the outcome of a verification attempt. Method is only set when
// Verified is true.
type Result struct {
	Verified bool                      `json:"verified"`
	Method   domain.VerificationMethod `json:"method,omitempty"`
}

// Verifier runs ownership challenges against the live domain. It holds an
// ordered list of checkers and is free of persistence concerns; idempotency
// and scheduling live in Service.
type Verifier struct {
	checkers []checker
}

// NewVerifier builds a verifier over the given collaborators. Checker order
// is the documented method priority: dns_txt, html_file, meta_tag.
func NewVerifier(resolver probe.Resolver, fetcher probe.Fetcher) *Verifier {
	return &Verifier{
		checkers: []checker{
			dnsTXTChecker{resolver: resolver},
			htmlFileChecker{fetcher: fetcher},
			metaTagChecker{fetcher: fetcher},
		},
	}
}

// Verify checks whether the domain currently presents proof for the token.
// With a method it runs only that challenge; without one it tries all
// checkers in priority order and short-circuits on the first success. It
// never returns an error: any network, DNS or parse failure during a check
// counts as "not verified".
func (v *Verifier) Verify(ctx context.Context,
	domainName, token string,
	method domain.VerificationMethod) Result {
	for _, c := range v.checkers {
		if method != "" && c.Method() != method {
			continue
		}
		if c.Check(ctx, domainName, token) {
			logger.Info(ctx, "domain verified",
				zap.String("domain", domainName),
				zap.String("method", string(c.Method())))

			return Result{Verified: true, Method: c.Method()}
		}
	}

	return Result{}
}
