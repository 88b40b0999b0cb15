package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrackedDomainID uniquely identifies a tracked domain.
// It wraps uuid.UUID to provide type safety at the domain layer.
type TrackedDomainID uuid.UUID

// UserID uniquely identifies a user within the system.
// It is a thin wrapper around uuid.UUID to provide type safety at the domain layer.
type UserID uuid.UUID

// VerificationMethod identifies which challenge type proved ownership of a
// domain. The empty value means the domain has not been verified yet.
type VerificationMethod string

const (
	// MethodDNSTXT proves ownership via a TXT record at the apex (or the
	// legacy _domainstack-verify name).
	MethodDNSTXT VerificationMethod = "dns_txt"
	// MethodHTMLFile proves ownership via a token file under /.well-known.
	MethodHTMLFile VerificationMethod = "html_file"
	// MethodMetaTag proves ownership via a meta tag on the homepage.
	MethodMetaTag VerificationMethod = "meta_tag"
)

// Methods lists all verification methods in the priority order used when the
// caller does not request a specific one.
func Methods() []VerificationMethod {
	return []VerificationMethod{MethodDNSTXT, MethodHTMLFile, MethodMetaTag}
}

// TrackedDomain represents a domain a user monitors. Verification transitions
// false->true exactly once; re-verifying an already verified domain is a
// no-op. Archiving pauses monitoring without losing state.
type TrackedDomain struct {
	// ID is the unique identifier of the tracked domain.
	ID TrackedDomainID `json:"id"`
	// UserID is the identifier of the owning user.
	UserID UserID `json:"userId"`

	// DomainName is the apex domain being tracked, e.g. "example.com".
	DomainName string `json:"domainName"`
	// VerificationToken is the secret the user must publish to prove control.
	VerificationToken string `json:"-"`
	// Verified reports whether ownership has been proven.
	Verified bool `json:"verified"`
	// VerificationMethod records which challenge succeeded. Empty until verified.
	VerificationMethod VerificationMethod `json:"verificationMethod,omitempty"`

	// GraceExpiresAt is set when a previously verified domain no longer
	// presents proof; after it passes, Verified is reset to false.
	GraceExpiresAt time.Time `json:"-"`
	// LastManualCheckAt is the time of the last user-triggered verification
	// attempt, used for rate limiting.
	LastManualCheckAt time.Time `json:"-"`

	// ArchivedAt marks when monitoring was paused; zero value means active.
	ArchivedAt time.Time `json:"archivedAt,omitempty"`
	// MutedAt marks when notifications were muted; zero value means unmuted.
	MutedAt time.Time `json:"mutedAt,omitempty"`

	// CreatedAt is when the domain was added. The automatic verification
	// schedule window is anchored to it.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time of the last modification.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Archived reports whether monitoring for this domain is paused.
func (t TrackedDomain) Archived() bool { return !t.ArchivedAt.IsZero() }

// Muted reports whether notifications for this domain are muted.
func (t TrackedDomain) Muted() bool { return !t.MutedAt.IsZero() }

// InGrace reports whether the domain is inside the post-verification grace
// period at the given time.
func (t TrackedDomain) InGrace(now time.Time) bool {
	return !t.GraceExpiresAt.IsZero() && now.Before(t.GraceExpiresAt)
}
