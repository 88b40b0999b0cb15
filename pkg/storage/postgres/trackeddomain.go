package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"domainstack/pkg/domain"
	"domainstack/pkg/storage"
)

const trackedDomainsTable = "tracked_domains"

// StoreTrackedDomain inserts a tracked domain and returns the stored row.
func (p *PgSQL) StoreTrackedDomain(ctx context.Context, d domain.TrackedDomain) (*domain.TrackedDomain, error) {
	var pg PgTrackedDomain
	pg.FromDomain(d)

	var row PgTrackedDomain
	found, err := p.Builder.Insert(trackedDomainsTable).
		Rows(pg).
		Returning(&PgTrackedDomain{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not store tracked domain into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("insert returned no row")
	}

	return row.ToDomain(), nil
}

// TrackedDomainByID fetches a tracked domain by id. Returns nil when not
// found.
func (p *PgSQL) TrackedDomainByID(ctx context.Context, id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	var row PgTrackedDomain
	found, err := p.Builder.From(trackedDomainsTable).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch tracked domain by id: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// UpdateTrackedDomain applies the provided field set. Only non-nil fields are
// written; zero time values clear nullable columns. Returns the updated row,
// or nil when the domain does not exist.
func (p *PgSQL) UpdateTrackedDomain(ctx context.Context,
	id domain.TrackedDomainID,
	updates storage.TrackedDomainUpdates) (*domain.TrackedDomain, error) {
	rec := goqu.Record{
		"updated_at": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.Verified != nil {
		rec["verified"] = *updates.Verified
	}
	if updates.Method != nil {
		if *updates.Method == "" {
			rec["verification_method"] = goqu.L("NULL")
		} else {
			rec["verification_method"] = string(*updates.Method)
		}
	}
	setNullableTime(rec, "grace_expires_at", updates.GraceExpiresAt)
	setNullableTime(rec, "last_manual_check_at", updates.LastManualCheckAt)
	setNullableTime(rec, "archived_at", updates.ArchivedAt)
	setNullableTime(rec, "muted_at", updates.MutedAt)

	var row PgTrackedDomain
	found, err := p.Builder.Update(trackedDomainsTable).
		Set(rec).
		Where(goqu.I("id").Eq(uuid.UUID(id))).
		Returning(&PgTrackedDomain{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update tracked domain in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// DeleteTrackedDomain removes a tracked domain owned by the given user and
// returns the deleted row, or nil if it was not found.
func (p *PgSQL) DeleteTrackedDomain(ctx context.Context,
	userID domain.UserID,
	id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	var row PgTrackedDomain
	found, err := p.Builder.Delete(trackedDomainsTable).
		Where(
			goqu.I("id").Eq(uuid.UUID(id)),
			goqu.I("user_id").Eq(uuid.UUID(userID)),
		).
		Returning(&PgTrackedDomain{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not delete tracked domain in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return row.ToDomain(), nil
}

// VerifiedTrackedDomains returns all verified, non-archived domains.
func (p *PgSQL) VerifiedTrackedDomains(ctx context.Context) ([]domain.TrackedDomain, error) {
	var rows []PgTrackedDomain
	if err := p.Builder.From(trackedDomainsTable).
		Where(
			goqu.I("verified").IsTrue(),
			goqu.I("archived_at").IsNull(),
		).
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch verified tracked domains from pg: %w", err)
	}

	return pgTrackedDomainsToDomain(rows), nil
}

func setNullableTime(rec goqu.Record, column string, value *time.Time) {
	if value == nil {
		return
	}
	if value.IsZero() {
		rec[column] = goqu.L("NULL")
	} else {
		rec[column] = *value
	}
}
