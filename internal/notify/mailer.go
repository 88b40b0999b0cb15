// Package notify turns change events and lifecycle events into deduplicated,
// multi-channel notifications. Delivery to each enabled channel is
// independent; one channel's failure never blocks another, and the in-app
// record is persisted for the inbox and audit trail regardless of the email
// outcome.
package notify

import (
	"context"

	"domainstack/pkg/domain"
	"domainstack/pkg/serrors"
)

// Mailer is the email transport collaborator. Implementations deliver a
// single message; retries are the job runtime's concern.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NopMailer discards messages. Used when no mail transport is configured.
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, _, _, _ string) error { return nil }

// StaticRecipients routes every user's mail to one configured address. The
// account system lives outside this service, so single-operator deployments
// configure the inbox directly.
type StaticRecipients struct {
	Email string
}

func (r StaticRecipients) EmailFor(_ context.Context, _ domain.UserID) (string, error) {
	if r.Email == "" {
		return "", serrors.With(serrors.ErrNotFound, "no recipient address configured")
	}

	return r.Email, nil
}
