package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"domainstack/pkg/domain"
)

type PgTrackedDomain struct {
	ID     uuid.UUID `db:"id"`
	UserID uuid.UUID `db:"user_id"`

	DomainName        string         `db:"domain_name"`
	VerificationToken string         `db:"verification_token"`
	Verified          bool           `db:"verified"`
	Method            sql.NullString `db:"verification_method"`

	GraceExpiresAt    sql.NullTime `db:"grace_expires_at"    goqu:"skipinsert"`
	LastManualCheckAt sql.NullTime `db:"last_manual_check_at" goqu:"skipinsert"`
	ArchivedAt        sql.NullTime `db:"archived_at"          goqu:"skipinsert"`
	MutedAt           sql.NullTime `db:"muted_at"             goqu:"skipinsert"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgTrackedDomain) ToDomain() *domain.TrackedDomain {
	return &domain.TrackedDomain{
		ID:                 domain.TrackedDomainID(p.ID),
		UserID:             domain.UserID(p.UserID),
		DomainName:         p.DomainName,
		VerificationToken:  p.VerificationToken,
		Verified:           p.Verified,
		VerificationMethod: domain.VerificationMethod(p.Method.String),
		GraceExpiresAt:     p.GraceExpiresAt.Time,
		LastManualCheckAt:  p.LastManualCheckAt.Time,
		ArchivedAt:         p.ArchivedAt.Time,
		MutedAt:            p.MutedAt.Time,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt.Time,
	}
}

func (p *PgTrackedDomain) FromDomain(d domain.TrackedDomain) {
	*p = PgTrackedDomain{
		ID:                uuid.UUID(d.ID),
		UserID:            uuid.UUID(d.UserID),
		DomainName:        d.DomainName,
		VerificationToken: d.VerificationToken,
		Verified:          d.Verified,
		Method: sql.NullString{
			String: string(d.VerificationMethod),
			Valid:  d.VerificationMethod != "",
		},
		GraceExpiresAt: sql.NullTime{
			Time:  d.GraceExpiresAt,
			Valid: !d.GraceExpiresAt.IsZero(),
		},
		LastManualCheckAt: sql.NullTime{
			Time:  d.LastManualCheckAt,
			Valid: !d.LastManualCheckAt.IsZero(),
		},
		ArchivedAt: sql.NullTime{
			Time:  d.ArchivedAt,
			Valid: !d.ArchivedAt.IsZero(),
		},
		MutedAt: sql.NullTime{
			Time:  d.MutedAt,
			Valid: !d.MutedAt.IsZero(),
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: sql.NullTime{
			Time:  d.UpdatedAt,
			Valid: !d.UpdatedAt.IsZero(),
		},
	}
}

func pgTrackedDomainsToDomain(rows []PgTrackedDomain) []domain.TrackedDomain {
	out := make([]domain.TrackedDomain, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}

	return out
}

// PgSnapshot stores the diff baselines. The nameserver and status sets are
// jsonb arrays; empty provider ids mean "none detected / never committed".
type PgSnapshot struct {
	TrackedDomainID uuid.UUID `db:"tracked_domain_id"`

	RegistrarProviderID string          `db:"registrar_provider_id"`
	Nameservers         json.RawMessage `db:"nameservers"`
	TransferLock        string          `db:"transfer_lock"`
	Statuses            json.RawMessage `db:"statuses"`

	DNSProviderID     string `db:"dns_provider_id"`
	HostingProviderID string `db:"hosting_provider_id"`
	EmailProviderID   string `db:"email_provider_id"`

	CAProviderID string       `db:"ca_provider_id"`
	CertIssuer   string       `db:"cert_issuer"`
	CertValidTo  sql.NullTime `db:"cert_valid_to"`

	CreatedAt time.Time    `db:"created_at" goqu:"skipinsert"`
	UpdatedAt sql.NullTime `db:"updated_at" goqu:"skipinsert"`
}

func (p *PgSnapshot) ToDomain() (*domain.Snapshot, error) {
	nameservers, err := stringsFromJSON(p.Nameservers)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal nameservers: %w", err)
	}
	statuses, err := stringsFromJSON(p.Statuses)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal statuses: %w", err)
	}

	return &domain.Snapshot{
		TrackedDomainID:     domain.TrackedDomainID(p.TrackedDomainID),
		RegistrarProviderID: p.RegistrarProviderID,
		Nameservers:         nameservers,
		TransferLock:        domain.TransferLock(p.TransferLock),
		Statuses:            statuses,
		DNSProviderID:       p.DNSProviderID,
		HostingProviderID:   p.HostingProviderID,
		EmailProviderID:     p.EmailProviderID,
		CAProviderID:        p.CAProviderID,
		CertIssuer:          p.CertIssuer,
		CertValidTo:         p.CertValidTo.Time,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt.Time,
	}, nil
}

func stringsFromJSON(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func stringsToJSON(in []string) (json.RawMessage, error) {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("could not marshal string set: %w", err)
	}

	return b, nil
}

type PgNotification struct {
	ID              uuid.UUID `db:"id"`
	TrackedDomainID uuid.UUID `db:"tracked_domain_id"`
	UserID          uuid.UUID `db:"user_id"`

	Type      string          `db:"type"`
	Channels  json.RawMessage `db:"channels"`
	Subject   string          `db:"subject"`
	Body      string          `db:"body"`
	DedupeKey string          `db:"dedupe_key"`

	CreatedAt time.Time `db:"created_at"`
}

func (p *PgNotification) ToDomain() (*domain.Notification, error) {
	var channels []domain.Channel
	if len(p.Channels) > 0 {
		if err := json.Unmarshal(p.Channels, &channels); err != nil {
			return nil, fmt.Errorf("could not unmarshal notification channels: %w", err)
		}
	}

	return &domain.Notification{
		ID:              domain.NotificationID(p.ID),
		TrackedDomainID: domain.TrackedDomainID(p.TrackedDomainID),
		UserID:          domain.UserID(p.UserID),
		Type:            p.Type,
		Channels:        channels,
		Subject:         p.Subject,
		Body:            p.Body,
		DedupeKey:       p.DedupeKey,
		CreatedAt:       p.CreatedAt,
	}, nil
}

func (p *PgNotification) FromDomain(n domain.Notification) error {
	channels, err := json.Marshal(n.Channels)
	if err != nil {
		return fmt.Errorf("could not marshal notification channels: %w", err)
	}

	*p = PgNotification{
		ID:              uuid.UUID(n.ID),
		TrackedDomainID: uuid.UUID(n.TrackedDomainID),
		UserID:          uuid.UUID(n.UserID),
		Type:            n.Type,
		Channels:        channels,
		Subject:         n.Subject,
		Body:            n.Body,
		DedupeKey:       n.DedupeKey,
		CreatedAt:       n.CreatedAt,
	}

	return nil
}

// PgPreference stores one channel preference row. Global settings use the
// zero uuid as tracked_domain_id so the uniqueness constraint covers them.
type PgPreference struct {
	UserID          uuid.UUID `db:"user_id"`
	TrackedDomainID uuid.UUID `db:"tracked_domain_id"`
	Category        string    `db:"category"`

	EmailEnabled bool `db:"email_enabled"`
	InAppEnabled bool `db:"in_app_enabled"`
}

func (p *PgPreference) ToDomain() *domain.NotificationPreference {
	return &domain.NotificationPreference{
		UserID:          domain.UserID(p.UserID),
		TrackedDomainID: domain.TrackedDomainID(p.TrackedDomainID),
		Category:        domain.ChangeCategory(p.Category),
		EmailEnabled:    p.EmailEnabled,
		InAppEnabled:    p.InAppEnabled,
	}
}

func (p *PgPreference) FromDomain(pref domain.NotificationPreference) {
	*p = PgPreference{
		UserID:          uuid.UUID(pref.UserID),
		TrackedDomainID: uuid.UUID(pref.TrackedDomainID),
		Category:        string(pref.Category),
		EmailEnabled:    pref.EmailEnabled,
		InAppEnabled:    pref.InAppEnabled,
	}
}

type PgProvider struct {
	ID       string          `db:"id"`
	Name     string          `db:"name"`
	Category string          `db:"category"`
	Rule     json.RawMessage `db:"rule"`
	Position int             `db:"position"`
}

func (p *PgProvider) ToDomain() *domain.Provider {
	return &domain.Provider{
		ID:       p.ID,
		Name:     p.Name,
		Category: domain.ProviderCategory(p.Category),
		Rule:     []byte(p.Rule),
	}
}
