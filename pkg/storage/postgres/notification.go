package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"domainstack/pkg/domain"
)

const (
	notificationsTable = "notifications"
	preferencesTable   = "notification_preferences"
	providersTable     = "providers"
)

// StoreNotification inserts a delivery record with upsert-or-ignore semantics
// on the dedupe key. Returns false when a record with the same key already
// exists; the caller treats that as "already delivered".
func (p *PgSQL) StoreNotification(ctx context.Context, n domain.Notification) (bool, error) {
	var pg PgNotification
	if err := pg.FromDomain(n); err != nil {
		return false, err
	}

	res, err := p.Builder.Insert(notificationsTable).
		Rows(pg).
		OnConflict(goqu.DoNothing()).
		Executor().ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("could not store notification into pg: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("could not read insert result: %w", err)
	}

	return inserted > 0, nil
}

// UserNotifications returns the most recent notifications for a user, newest
// first.
func (p *PgSQL) UserNotifications(ctx context.Context,
	userID domain.UserID,
	limit uint) ([]domain.Notification, error) {
	var rows []PgNotification
	if err := p.Builder.From(notificationsTable).
		Where(goqu.I("user_id").Eq(uuid.UUID(userID))).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch user notifications from pg: %w", err)
	}

	out := make([]domain.Notification, 0, len(rows))
	for i := range rows {
		n, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}

	return out, nil
}

// PreferencesFor returns the user's global setting and per-domain override
// for a category. Global rows carry the zero uuid as tracked_domain_id.
func (p *PgSQL) PreferencesFor(ctx context.Context,
	userID domain.UserID,
	id domain.TrackedDomainID,
	category domain.ChangeCategory) (*domain.NotificationPreference, *domain.NotificationPreference, error) {
	var rows []PgPreference
	if err := p.Builder.From(preferencesTable).
		Where(
			goqu.I("user_id").Eq(uuid.UUID(userID)),
			goqu.I("category").Eq(string(category)),
			goqu.I("tracked_domain_id").In(uuid.UUID(id), uuid.Nil),
		).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, nil, fmt.Errorf("could not fetch notification preferences from pg: %w", err)
	}

	var global, override *domain.NotificationPreference
	for i := range rows {
		if rows[i].TrackedDomainID == uuid.Nil {
			global = rows[i].ToDomain()
		} else {
			override = rows[i].ToDomain()
		}
	}

	return global, override, nil
}

// UpsertPreference stores or replaces one preference row.
func (p *PgSQL) UpsertPreference(ctx context.Context, pref domain.NotificationPreference) error {
	var pg PgPreference
	pg.FromDomain(pref)

	if _, err := p.Builder.Insert(preferencesTable).
		Rows(pg).
		OnConflict(goqu.DoUpdate("user_id, tracked_domain_id, category", goqu.Record{
			"email_enabled":  pg.EmailEnabled,
			"in_app_enabled": pg.InAppEnabled,
		})).
		Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("could not upsert notification preference in pg: %w", err)
	}

	return nil
}

// Providers returns all catalog entries in catalog order.
func (p *PgSQL) Providers(ctx context.Context) ([]domain.Provider, error) {
	var rows []PgProvider
	if err := p.Builder.From(providersTable).
		Order(goqu.I("position").Asc(), goqu.I("id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch providers from pg: %w", err)
	}

	out := make([]domain.Provider, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}

	return out, nil
}
