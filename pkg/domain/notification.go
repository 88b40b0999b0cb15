package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationID uniquely identifies a persisted notification record.
type NotificationID uuid.UUID

// Channel is a delivery channel for notifications.
type Channel string

const (
	// ChannelEmail delivers via the configured mail transport.
	ChannelEmail Channel = "email"
	// ChannelInApp persists a record for the in-app inbox.
	ChannelInApp Channel = "in_app"
)

// Notification is a persisted delivery record. It is written for the in-app
// inbox and audit trail regardless of the email channel outcome. DedupeKey is
// unique so that workflow-step retries never create a second record or send a
// second email for the same logical event.
type Notification struct {
	ID              NotificationID  `json:"id"`
	TrackedDomainID TrackedDomainID `json:"trackedDomainId"`
	UserID          UserID          `json:"userId"`

	// Type is the change category or lifecycle event that triggered the
	// notification, e.g. "registration" or "grace_period".
	Type string `json:"type"`
	// Channels lists the channels the notification was dispatched to.
	Channels []Channel `json:"channels"`

	Subject string `json:"subject"`
	Body    string `json:"body"`

	// DedupeKey is the stable idempotency key, derived from
	// (trackedDomainId, type[, date bucket]).
	DedupeKey string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// ChannelPreference holds the resolved on/off flags for both channels of one
// category after applying override precedence.
type ChannelPreference struct {
	Email bool
	InApp bool
}

// Enabled reports whether at least one channel is on.
func (p ChannelPreference) Enabled() bool { return p.Email || p.InApp }

// Channels returns the enabled channels in a stable order.
func (p ChannelPreference) Channels() []Channel {
	var out []Channel
	if p.Email {
		out = append(out, ChannelEmail)
	}
	if p.InApp {
		out = append(out, ChannelInApp)
	}

	return out
}

// NotificationPreference is one stored preference row. A row with a zero
// TrackedDomainID is the user's global setting for the category; a row with a
// TrackedDomainID set is a per-domain override. Resolution precedence is
// per-domain override > global setting > default-on.
type NotificationPreference struct {
	UserID          UserID          `json:"userId"`
	TrackedDomainID TrackedDomainID `json:"trackedDomainId,omitempty"`
	Category        ChangeCategory  `json:"category"`

	EmailEnabled bool `json:"emailEnabled"`
	InAppEnabled bool `json:"inAppEnabled"`
}

// ResolvePreference applies override precedence to an optional global setting
// and an optional per-domain override. Absent settings default to on for both
// channels.
func ResolvePreference(global, override *NotificationPreference) ChannelPreference {
	if override != nil {
		return ChannelPreference{Email: override.EmailEnabled, InApp: override.InAppEnabled}
	}
	if global != nil {
		return ChannelPreference{Email: global.EmailEnabled, InApp: global.InAppEnabled}
	}

	return ChannelPreference{Email: true, InApp: true}
}
