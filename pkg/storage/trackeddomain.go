package storage

import (
	"context"
	"time"

	"domainstack/pkg/domain"
)

// TrackedDomainUpdates describes a set of optional fields that can be applied
// to an existing tracked domain during an update. Only non-nil fields will be
// updated.
type TrackedDomainUpdates struct {
	// Verified, when provided, sets the verification flag. Setting it to
	// true should be accompanied by Method.
	Verified *bool
	// Method, when provided, sets the verification method. An empty string
	// value clears it (set to NULL).
	Method *domain.VerificationMethod
	// GraceExpiresAt, when provided, sets the grace deadline. A zero time
	// value clears it (set to NULL).
	GraceExpiresAt *time.Time
	// LastManualCheckAt, when provided, records a manual verification attempt.
	LastManualCheckAt *time.Time
	// ArchivedAt, when provided, pauses or (zero value) resumes monitoring.
	ArchivedAt *time.Time
	// MutedAt, when provided, mutes or (zero value) unmutes notifications.
	MutedAt *time.Time
}

// TrackedDomainStorage defines CRUD and query operations for tracked domains.
type TrackedDomainStorage interface {
	// StoreTrackedDomain inserts a tracked domain and returns the stored row
	// as it exists in the database (including generated fields).
	StoreTrackedDomain(ctx context.Context, d domain.TrackedDomain) (*domain.TrackedDomain, error)
	// TrackedDomainByID fetches a tracked domain by id. Returns nil when not found.
	TrackedDomainByID(ctx context.Context, id domain.TrackedDomainID) (*domain.TrackedDomain, error)
	// UpdateTrackedDomain applies the provided field set and returns the
	// updated row, or nil when the domain does not exist. updated_at is set
	// automatically.
	UpdateTrackedDomain(ctx context.Context,
		id domain.TrackedDomainID,
		updates TrackedDomainUpdates) (*domain.TrackedDomain, error)
	// DeleteTrackedDomain removes a tracked domain owned by the given user and
	// returns the deleted row, or nil if it was not found.
	DeleteTrackedDomain(ctx context.Context,
		userID domain.UserID,
		id domain.TrackedDomainID) (*domain.TrackedDomain, error)
	// VerifiedTrackedDomains returns all verified, non-archived domains. Used
	// by the grace-period sweep and the monitoring scheduler.
	VerifiedTrackedDomains(ctx context.Context) ([]domain.TrackedDomain, error)
}
