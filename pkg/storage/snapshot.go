package storage

import (
	"context"

	"domainstack/pkg/domain"
)

// SnapshotStorage manages the per-domain diff baselines. Each category commit
// is a single atomic upsert so partial corruption cannot occur; commits only
// happen after confirmed notification dispatch.
type SnapshotStorage interface {
	// CreateSnapshot inserts an empty snapshot for the domain if none exists
	// yet. Creating an existing snapshot is a no-op, keeping first
	// verification idempotent.
	CreateSnapshot(ctx context.Context, id domain.TrackedDomainID) error
	// SnapshotByTrackedDomain fetches the snapshot baseline. Returns nil when
	// absent; callers must skip the run rather than fabricate a baseline.
	SnapshotByTrackedDomain(ctx context.Context, id domain.TrackedDomainID) (*domain.Snapshot, error)
	// CommitRegistrationBaseline overwrites the registration category.
	CommitRegistrationBaseline(ctx context.Context,
		id domain.TrackedDomainID,
		b domain.RegistrationBaseline) error
	// CommitProviderBaseline overwrites the provider category.
	CommitProviderBaseline(ctx context.Context,
		id domain.TrackedDomainID,
		b domain.ProviderBaseline) error
	// CommitCertificateBaseline overwrites the certificate category.
	CommitCertificateBaseline(ctx context.Context,
		id domain.TrackedDomainID,
		b domain.CertificateBaseline) error
}

// ArtifactStorage persists the raw fetch results of each monitoring run,
// independent of whether any change was detected or notified.
type ArtifactStorage interface {
	// StoreArtifact upserts the latest raw artifact of the given kind
	// ("registration", "dns", "headers", "certificates") for a domain.
	StoreArtifact(ctx context.Context, id domain.TrackedDomainID, kind string, payload any) error
}
