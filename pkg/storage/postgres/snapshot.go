package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"domainstack/pkg/domain"
)

const (
	snapshotsTable = "snapshots"
	artifactsTable = "artifacts"
)

// CreateSnapshot inserts an empty snapshot for the domain if none exists yet.
// Re-creating an existing snapshot is a no-op so first verification stays
// idempotent.
func (p *PgSQL) CreateSnapshot(ctx context.Context, id domain.TrackedDomainID) error {
	empty, err := stringsToJSON(nil)
	if err != nil {
		return err
	}

	if _, err := p.Builder.Insert(snapshotsTable).
		Rows(PgSnapshot{
			TrackedDomainID: uuid.UUID(id),
			Nameservers:     empty,
			Statuses:        empty,
		}).
		OnConflict(goqu.DoNothing()).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not create snapshot in pg: %w", err)
	}

	return nil
}

// SnapshotByTrackedDomain fetches the snapshot baseline. Returns nil when
// absent.
func (p *PgSQL) SnapshotByTrackedDomain(ctx context.Context,
	id domain.TrackedDomainID) (*domain.Snapshot, error) {
	var row PgSnapshot
	found, err := p.Builder.From(snapshotsTable).
		Where(goqu.I("tracked_domain_id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch snapshot from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain()
}

// CommitRegistrationBaseline overwrites the registration category of the
// snapshot in a single atomic update.
func (p *PgSQL) CommitRegistrationBaseline(ctx context.Context,
	id domain.TrackedDomainID,
	b domain.RegistrationBaseline) error {
	nameservers, err := stringsToJSON(b.Nameservers)
	if err != nil {
		return err
	}
	statuses, err := stringsToJSON(b.Statuses)
	if err != nil {
		return err
	}

	return p.commitBaseline(ctx, id, goqu.Record{
		"registrar_provider_id": b.RegistrarProviderID,
		"nameservers":           nameservers,
		"transfer_lock":         string(b.TransferLock),
		"statuses":              statuses,
	})
}

// CommitProviderBaseline overwrites the provider category of the snapshot.
func (p *PgSQL) CommitProviderBaseline(ctx context.Context,
	id domain.TrackedDomainID,
	b domain.ProviderBaseline) error {
	return p.commitBaseline(ctx, id, goqu.Record{
		"dns_provider_id":     b.DNSProviderID,
		"hosting_provider_id": b.HostingProviderID,
		"email_provider_id":   b.EmailProviderID,
	})
}

// CommitCertificateBaseline overwrites the certificate category of the
// snapshot.
func (p *PgSQL) CommitCertificateBaseline(ctx context.Context,
	id domain.TrackedDomainID,
	b domain.CertificateBaseline) error {
	rec := goqu.Record{
		"ca_provider_id": b.CAProviderID,
		"cert_issuer":    b.Issuer,
	}
	if b.ValidTo.IsZero() {
		rec["cert_valid_to"] = goqu.L("NULL")
	} else {
		rec["cert_valid_to"] = b.ValidTo.UTC()
	}

	return p.commitBaseline(ctx, id, rec)
}

func (p *PgSQL) commitBaseline(ctx context.Context, id domain.TrackedDomainID, rec goqu.Record) error {
	rec["updated_at"] = goqu.L("CURRENT_TIMESTAMP")

	_, err := p.Builder.Update(snapshotsTable).
		Set(rec).
		Where(goqu.I("tracked_domain_id").Eq(uuid.UUID(id))).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not commit snapshot baseline in pg: %w", err)
	}

	return nil
}

// StoreArtifact upserts the latest raw artifact of the given kind for a
// domain. One row per (domain, kind) is kept; each run overwrites the
// previous payload.
func (p *PgSQL) StoreArtifact(ctx context.Context,
	id domain.TrackedDomainID,
	kind string,
	payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("could not marshal artifact payload: %w", err)
	}

	if _, err := p.Builder.Insert(artifactsTable).
		Rows(goqu.Record{
			"tracked_domain_id": uuid.UUID(id),
			"kind":              kind,
			"payload":           json.RawMessage(b),
			"fetched_at":        time.Now().UTC(),
		}).
		OnConflict(goqu.DoUpdate("tracked_domain_id, kind", goqu.Record{
			"payload":    json.RawMessage(b),
			"fetched_at": time.Now().UTC(),
		})).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not store artifact in pg: %w", err)
	}

	return nil
}
