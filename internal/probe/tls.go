package probe

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"domainstack/pkg/domain"
	"domainstack/pkg/serrors"
)

// TLSGrabber implements CertGrabber with a raw TLS handshake on port 443.
// Verification is disabled: the point is to record the chain a host serves,
// including expired or mismatched certificates, not to trust it.
type TLSGrabber struct {
	timeout time.Duration
}

// NewTLSGrabber returns a grabber with the given handshake timeout. A
// non-positive timeout defaults to 5 seconds.
func NewTLSGrabber(timeout time.Duration) *TLSGrabber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &TLSGrabber{timeout: timeout}
}

// CertChain dials host:443 and returns the served certificate chain, leaf
// first. Connection failures map to serrors.ErrConnection, handshake
// failures to serrors.ErrTLS.
func (g *TLSGrabber) CertChain(ctx context.Context, host string) ([]domain.Certificate, error) {
	dialer := &net.Dialer{Timeout: g.timeout}

	rawConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrConnection, err, "could not connect to %s", host)
	}
	defer func() {
		_ = rawConn.Close()
	}()

	conn := tls.Client(rawConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true, //nolint: gosec // recording the chain, not trusting it
	})
	_ = conn.SetDeadline(time.Now().Add(g.timeout))
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, serrors.Wrap(serrors.ErrTLS, err, "tls handshake with %s failed", host)
	}

	peerCerts := conn.ConnectionState().PeerCertificates
	chain := make([]domain.Certificate, 0, len(peerCerts))
	for _, c := range peerCerts {
		chain = append(chain, domain.Certificate{
			Issuer:    c.Issuer.String(),
			Subject:   c.Subject.CommonName,
			ValidFrom: c.NotBefore,
			ValidTo:   c.NotAfter,
		})
	}

	return chain, nil
}
