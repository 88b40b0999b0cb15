package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/storage"
)

// Recipients resolves a user id to an email address. The account system is an
// external collaborator; only this lookup is needed here.
type Recipients interface {
	EmailFor(ctx context.Context, userID domain.UserID) (string, error)
}

// Dispatcher delivers notifications over the enabled channels with
// at-most-once semantics per dedupe key.
type Dispatcher struct {
	storage    storage.Storage
	mailer     Mailer
	recipients Recipients
}

// NewDispatcher builds a dispatcher over the given collaborators.
func NewDispatcher(strg storage.Storage, mailer Mailer, recipients Recipients) *Dispatcher {
	return &Dispatcher{storage: strg, mailer: mailer, recipients: recipients}
}

// Message is one notification to deliver.
type Message struct {
	TrackedDomainID domain.TrackedDomainID
	UserID          domain.UserID

	// Type is the change category or lifecycle event, e.g. "registration".
	Type string
	// Bucket optionally scopes the dedupe key in time, e.g. a date for
	// daily digests. Empty for one-shot events.
	Bucket string

	Subject string
	Body    string
}

// DedupeKey returns the stable idempotency key for a message. Two dispatches
// with the same (domain, type, bucket) resolve to the same key, so a
// workflow-step retry can never deliver a second email.
func (m Message) DedupeKey() string {
	key := fmt.Sprintf("%s:%s", uuid.UUID(m.TrackedDomainID), m.Type)
	if m.Bucket != "" {
		key += ":" + m.Bucket
	}

	return key
}

// Dispatch persists the delivery record and sends to the enabled channels.
// The record insert is the idempotency gate: when the dedupe key already
// exists, the event was handled by an earlier attempt and the dispatch
// reports success without re-sending. The in-app record is written even when
// only the email channel is enabled, for audit. Channel legs are independent:
// an email transport failure is logged and does not fail the dispatch. Only a
// persistence failure is returned as an error, making the step fatal so the
// runtime retries it.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message, pref domain.ChannelPreference) (bool, error) {
	if !pref.Enabled() {
		return false, nil
	}

	created, err := d.storage.StoreNotification(ctx, domain.Notification{
		ID:              domain.NotificationID(uuid.New()),
		TrackedDomainID: msg.TrackedDomainID,
		UserID:          msg.UserID,
		Type:            msg.Type,
		Channels:        pref.Channels(),
		Subject:         msg.Subject,
		Body:            msg.Body,
		DedupeKey:       msg.DedupeKey(),
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("could not store notification: %w", err)
	}
	if !created {
		logger.Debug(ctx, "notification already delivered, skipping",
			zap.String("dedupeKey", msg.DedupeKey()))

		return true, nil
	}

	if pref.Email {
		if err := d.sendEmail(ctx, msg); err != nil {
			// The in-app record is already committed and deduplicates any
			// retry, so a failed email leg is logged rather than failing
			// the step.
			logger.Error(ctx, "email delivery failed",
				zap.String("dedupeKey", msg.DedupeKey()), zap.Error(err))
		}
	}

	return true, nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, msg Message) error {
	to, err := d.recipients.EmailFor(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("could not resolve recipient: %w", err)
	}
	if to == "" {
		logger.Warn(ctx, "user has no email address, skipping email channel",
			zap.String("userID", uuid.UUID(msg.UserID).String()))

		return nil
	}

	return d.mailer.Send(ctx, to, msg.Subject, msg.Body)
}
