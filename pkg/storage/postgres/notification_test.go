package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"domainstack/pkg/domain"
)

func makeNotification(userID domain.UserID, dedupeKey string) domain.Notification {
	return domain.Notification{
		ID:              domain.NotificationID(uuid.New()),
		TrackedDomainID: domain.TrackedDomainID(uuid.New()),
		UserID:          userID,
		Type:            "registration",
		Channels:        []domain.Channel{domain.ChannelEmail, domain.ChannelInApp},
		Subject:         "example.com: Registrar changed",
		Body:            "Registrar: Registrar A -> Registrar B",
		DedupeKey:       dedupeKey,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestStoreNotificationDedupes(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	n := makeNotification(userID, "a:registration:2026-08-30")

	created, err := pgSQL.StoreNotification(ctx, n)
	require.NoError(t, err)
	require.True(t, created)

	// Same dedupe key: silently ignored.
	dup := makeNotification(userID, n.DedupeKey)
	created, err = pgSQL.StoreNotification(ctx, dup)
	require.NoError(t, err)
	require.False(t, created)

	// Different bucket, same event type: a new record.
	created, err = pgSQL.StoreNotification(ctx, makeNotification(userID, "a:registration:2026-08-31"))
	require.NoError(t, err)
	require.True(t, created)

	rows, err := pgSQL.UserNotifications(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, n.Subject, rows[0].Subject)
	require.ElementsMatch(t, []domain.Channel{domain.ChannelEmail, domain.ChannelInApp}, rows[0].Channels)
}

func TestUserNotificationsOrderAndLimit(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	base := time.Now().UTC().Add(-time.Hour)
	for i := range 5 {
		n := makeNotification(userID, uuid.NewString())
		n.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		created, err := pgSQL.StoreNotification(ctx, n)
		require.NoError(t, err)
		require.True(t, created)
	}

	rows, err := pgSQL.UserNotifications(ctx, userID, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Newest first.
	require.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt))
	require.True(t, rows[1].CreatedAt.After(rows[2].CreatedAt))

	// Another user's inbox is empty.
	rows, err = pgSQL.UserNotifications(ctx, domain.UserID(uuid.New()), 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestPreferences(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	userID := domain.UserID(uuid.New())
	domainID := domain.TrackedDomainID(uuid.New())

	// Nothing configured: both sides nil, resolution defaults to on.
	global, override, err := pgSQL.PreferencesFor(ctx, userID, domainID, domain.ChangeRegistration)
	require.NoError(t, err)
	require.Nil(t, global)
	require.Nil(t, override)
	require.True(t, domain.ResolvePreference(global, override).Enabled())

	// Global opt-out of email for the category.
	require.NoError(t, pgSQL.UpsertPreference(ctx, domain.NotificationPreference{
		UserID:       userID,
		Category:     domain.ChangeRegistration,
		EmailEnabled: false,
		InAppEnabled: true,
	}))

	global, override, err = pgSQL.PreferencesFor(ctx, userID, domainID, domain.ChangeRegistration)
	require.NoError(t, err)
	require.NotNil(t, global)
	require.Nil(t, override)
	require.False(t, global.EmailEnabled)
	require.True(t, global.InAppEnabled)

	// Per-domain override wins over the global setting.
	require.NoError(t, pgSQL.UpsertPreference(ctx, domain.NotificationPreference{
		UserID:          userID,
		TrackedDomainID: domainID,
		Category:        domain.ChangeRegistration,
		EmailEnabled:    true,
		InAppEnabled:    false,
	}))

	global, override, err = pgSQL.PreferencesFor(ctx, userID, domainID, domain.ChangeRegistration)
	require.NoError(t, err)
	require.NotNil(t, global)
	require.NotNil(t, override)
	pref := domain.ResolvePreference(global, override)
	require.True(t, pref.Email)
	require.False(t, pref.InApp)

	// Upsert replaces the existing row instead of conflicting.
	require.NoError(t, pgSQL.UpsertPreference(ctx, domain.NotificationPreference{
		UserID:          userID,
		TrackedDomainID: domainID,
		Category:        domain.ChangeRegistration,
		EmailEnabled:    false,
		InAppEnabled:    false,
	}))
	_, override, err = pgSQL.PreferencesFor(ctx, userID, domainID, domain.ChangeRegistration)
	require.NoError(t, err)
	require.False(t, override.EmailEnabled)
	require.False(t, override.InAppEnabled)

	// Other categories are unaffected.
	global, override, err = pgSQL.PreferencesFor(ctx, userID, domainID, domain.ChangeCertificate)
	require.NoError(t, err)
	require.Nil(t, global)
	require.Nil(t, override)
}

func TestProvidersSeeded(t *testing.T) {
	pgSQL, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	providers, err := pgSQL.Providers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, providers)

	byID := make(map[string]domain.Provider, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}

	cf, ok := byID["cloudflare-dns"]
	require.True(t, ok)
	require.Equal(t, "Cloudflare", cf.Name)
	require.Equal(t, domain.ProviderDNS, cf.Category)
	require.NotEmpty(t, cf.Rule)

	le, ok := byID["letsencrypt"]
	require.True(t, ok)
	require.Equal(t, domain.ProviderCA, le.Category)
}
