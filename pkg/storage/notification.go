package storage

import (
	"context"

	"domainstack/pkg/domain"
)

// NotificationStorage persists delivery records and notification preferences.
type NotificationStorage interface {
	// StoreNotification inserts a delivery record with upsert-or-ignore
	// semantics on the dedupe key. It returns false when a record with the
	// same key already exists, so workflow-step retries never duplicate a
	// delivered notification.
	StoreNotification(ctx context.Context, n domain.Notification) (bool, error)
	// UserNotifications returns the most recent notifications for a user,
	// newest first, limited by limit.
	UserNotifications(ctx context.Context, userID domain.UserID, limit uint) ([]domain.Notification, error)
}

// PreferenceStorage manages per-category notification channel preferences.
type PreferenceStorage interface {
	// PreferencesFor returns the user's global setting and per-domain
	// override for a category. Either may be nil when not configured;
	// resolution precedence is handled by domain.ResolvePreference.
	PreferencesFor(ctx context.Context,
		userID domain.UserID,
		id domain.TrackedDomainID,
		category domain.ChangeCategory) (global, override *domain.NotificationPreference, err error)
	// UpsertPreference stores or replaces one preference row.
	UpsertPreference(ctx context.Context, p domain.NotificationPreference) error
}

// ProviderStorage exposes the provider classification catalog.
type ProviderStorage interface {
	// Providers returns all catalog entries.
	Providers(ctx context.Context) ([]domain.Provider, error)
}
