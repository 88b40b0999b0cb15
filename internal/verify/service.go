package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"domainstack/internal/notify"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/serrors"
	"domainstack/pkg/storage"
)

// Options configure the verification schedule and grace period. The automatic
// schedule is exponential with a cap, bounded to a window anchored at domain
// creation; the original constants are not documented anywhere, so these are
// deliberate choices rather than recovered values.
type Options struct {
	// ScheduleBase is the snooze after the first failed automatic attempt.
	ScheduleBase time.Duration
	// ScheduleCap bounds the growth of the snooze interval.
	ScheduleCap time.Duration
	// ScheduleWindow is how long after creation automatic attempts keep running.
	ScheduleWindow time.Duration
	// GracePeriod is how long a verified domain keeps its status after proof
	// disappears.
	GracePeriod time.Duration
	// ManualMinInterval rate-limits user-triggered checks per domain.
	ManualMinInterval time.Duration
}

// Service coordinates verification state: it owns idempotency, the automatic
// retry schedule, the manual trigger rate limit, and the post-verification
// grace sweep. The pure challenge checks live in Verifier.
type Service struct {
	options    Options
	storage    storage.Storage
	verifier   *Verifier
	dispatcher *notify.Dispatcher
}

// NewService builds the verification service.
func NewService(strg storage.Storage, verifier *Verifier, dispatcher *notify.Dispatcher, options Options) *Service {
	return &Service{
		options:    options,
		storage:    strg,
		verifier:   verifier,
		dispatcher: dispatcher,
	}
}

// Track registers a new tracked domain for the user, generates its
// verification token and enqueues the automatic verification schedule. The
// row insert and the job insert share one transaction.
func (s *Service) Track(ctx context.Context, userID domain.UserID, rawDomain string) (*domain.TrackedDomain, error) {
	name, err := NormalizeDomain(rawDomain)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid domain name")
	}

	var tracked *domain.TrackedDomain
	if err := s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		row, err := tx.StoreTrackedDomain(ctx, domain.TrackedDomain{
			ID:                domain.TrackedDomainID(uuid.New()),
			UserID:            userID,
			DomainName:        name,
			VerificationToken: newToken(),
		})
		if err != nil {
			return fmt.Errorf("could not store tracked domain: %w", err)
		}
		tracked = row

		if _, err := tx.AddJob(ctx, VerifyArgs{TrackedDomainID: uuid.UUID(row.ID)}, nil); err != nil {
			return fmt.Errorf("could not enqueue verification job: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not track domain: %w", err)
	}

	return tracked, nil
}

// newToken generates a verification token. UUID-derived hex is long enough to
// be unguessable and survives DNS TXT quoting untouched.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// TrackedDomain returns a tracked domain by id. Returns ErrNotFound when the
// domain does not exist (e.g. it was removed while a job was queued).
func (s *Service) TrackedDomain(ctx context.Context, id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	return s.tracked(ctx, id)
}

// Challenges returns the setup instructions for every method of a domain.
func (s *Service) Challenges(ctx context.Context, id domain.TrackedDomainID) ([]Challenge, error) {
	tracked, err := s.tracked(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]Challenge, 0, len(domain.Methods()))
	for _, m := range domain.Methods() {
		out = append(out, ChallengeFor(tracked.DomainName, tracked.VerificationToken, m))
	}

	return out, nil
}

// Verify runs a verification attempt for the tracked domain. Verifying an
// already-verified domain is a no-op that returns the stored method without
// touching the network. On first success the snapshot baseline row is created
// empty in the same transaction that flips the verified flag.
func (s *Service) Verify(ctx context.Context,
	id domain.TrackedDomainID,
	method domain.VerificationMethod) (Result, error) {
	tracked, err := s.tracked(ctx, id)
	if err != nil {
		return Result{}, err
	}

	if tracked.Verified {
		return Result{Verified: true, Method: tracked.VerificationMethod}, nil
	}

	res := s.verifier.Verify(ctx, tracked.DomainName, tracked.VerificationToken, method)
	if !res.Verified {
		return Result{}, nil
	}

	if err := s.markVerified(ctx, tracked.ID, res.Method); err != nil {
		return Result{}, err
	}

	return res, nil
}

// ManualVerify is the user-triggered variant of Verify, rate-limited per
// domain.
func (s *Service) ManualVerify(ctx context.Context,
	id domain.TrackedDomainID,
	method domain.VerificationMethod) (Result, error) {
	tracked, err := s.tracked(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if tracked.Verified {
		return Result{Verified: true, Method: tracked.VerificationMethod}, nil
	}

	now := time.Now().UTC()
	if !tracked.LastManualCheckAt.IsZero() && now.Sub(tracked.LastManualCheckAt) < s.options.ManualMinInterval {
		return Result{}, serrors.With(serrors.ErrRateLimited,
			"manual verification allowed once per %s", s.options.ManualMinInterval)
	}
	if _, err := s.storage.UpdateTrackedDomain(ctx, id, storage.TrackedDomainUpdates{
		LastManualCheckAt: &now,
	}); err != nil {
		return Result{}, fmt.Errorf("could not record manual check: %w", err)
	}

	return s.Verify(ctx, id, method)
}

func (s *Service) markVerified(ctx context.Context,
	id domain.TrackedDomainID,
	method domain.VerificationMethod) error {
	verified := true
	var noGrace time.Time

	return s.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		if _, err := tx.UpdateTrackedDomain(ctx, id, storage.TrackedDomainUpdates{
			Verified:       &verified,
			Method:         &method,
			GraceExpiresAt: &noGrace,
		}); err != nil {
			return fmt.Errorf("could not mark domain verified: %w", err)
		}
		if err := tx.CreateSnapshot(ctx, id); err != nil {
			return fmt.Errorf("could not create snapshot: %w", err)
		}

		return nil
	})
}

// ScheduleFor returns the snooze before automatic attempt n+1 after n failed
// attempts: base*2^(n-1) capped at ScheduleCap.
func (s *Service) ScheduleFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := s.options.ScheduleBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.options.ScheduleCap {
			return s.options.ScheduleCap
		}
	}
	if d > s.options.ScheduleCap {
		d = s.options.ScheduleCap
	}

	return d
}

// WindowExpired reports whether the automatic schedule window has closed for
// a domain created at the given time.
func (s *Service) WindowExpired(createdAt, now time.Time) bool {
	return now.After(createdAt.Add(s.options.ScheduleWindow))
}

// Sweep re-validates all verified domains. A domain that still presents
// proof (by its stored method or any other) stays verified; one that does
// not enters a grace period with a notification, and once the grace period
// passes its verified flag is reset.
func (s *Service) Sweep(ctx context.Context) error {
	domains, err := s.storage.VerifiedTrackedDomains(ctx)
	if err != nil {
		return fmt.Errorf("could not list verified domains: %w", err)
	}

	now := time.Now().UTC()
	for _, tracked := range domains {
		if err := s.sweepOne(ctx, tracked, now); err != nil {
			// One broken domain must not starve the rest of the sweep.
			logger.Error(ctx, "grace sweep failed for domain",
				zap.String("domain", tracked.DomainName), zap.Error(err))
		}
	}

	return nil
}

func (s *Service) sweepOne(ctx context.Context, tracked domain.TrackedDomain, now time.Time) error {
	res := s.verifier.Verify(ctx, tracked.DomainName, tracked.VerificationToken, tracked.VerificationMethod)
	if !res.Verified {
		// The stored method no longer proves ownership; accept any other.
		res = s.verifier.Verify(ctx, tracked.DomainName, tracked.VerificationToken, "")
	}

	if res.Verified {
		if !tracked.GraceExpiresAt.IsZero() {
			var noGrace time.Time
			if _, err := s.storage.UpdateTrackedDomain(ctx, tracked.ID, storage.TrackedDomainUpdates{
				GraceExpiresAt: &noGrace,
				Method:         &res.Method,
			}); err != nil {
				return fmt.Errorf("could not clear grace period: %w", err)
			}
		}

		return nil
	}

	switch {
	case tracked.GraceExpiresAt.IsZero():
		return s.enterGrace(ctx, tracked, now)
	case now.After(tracked.GraceExpiresAt):
		return s.revokeVerification(ctx, tracked)
	default:
		// Still inside the grace period; nothing to do until it passes.
		return nil
	}
}

func (s *Service) enterGrace(ctx context.Context, tracked domain.TrackedDomain, now time.Time) error {
	deadline := now.Add(s.options.GracePeriod)
	if _, err := s.storage.UpdateTrackedDomain(ctx, tracked.ID, storage.TrackedDomainUpdates{
		GraceExpiresAt: &deadline,
	}); err != nil {
		return fmt.Errorf("could not start grace period: %w", err)
	}

	_, err := s.dispatcher.Dispatch(ctx, notify.Message{
		TrackedDomainID: tracked.ID,
		UserID:          tracked.UserID,
		Type:            "grace_period",
		Bucket:          deadline.Format(time.DateOnly),
		Subject:         fmt.Sprintf("Verification proof lost for %s", tracked.DomainName),
		Body: fmt.Sprintf("The ownership proof for %s could no longer be found. "+
			"Restore it before %s or the domain will be unverified.",
			tracked.DomainName, deadline.Format(time.RFC1123)),
	}, domain.ChannelPreference{Email: true, InApp: true})
	if err != nil {
		return fmt.Errorf("could not dispatch grace notification: %w", err)
	}

	return nil
}

func (s *Service) revokeVerification(ctx context.Context, tracked domain.TrackedDomain) error {
	verified := false
	method := domain.VerificationMethod("")
	var noGrace time.Time
	if _, err := s.storage.UpdateTrackedDomain(ctx, tracked.ID, storage.TrackedDomainUpdates{
		Verified:       &verified,
		Method:         &method,
		GraceExpiresAt: &noGrace,
	}); err != nil {
		return fmt.Errorf("could not revoke verification: %w", err)
	}

	_, err := s.dispatcher.Dispatch(ctx, notify.Message{
		TrackedDomainID: tracked.ID,
		UserID:          tracked.UserID,
		Type:            "verification_revoked",
		Subject:         fmt.Sprintf("%s is no longer verified", tracked.DomainName),
		Body: fmt.Sprintf("The grace period for %s expired without the ownership proof "+
			"being restored. Monitoring is paused until the domain is verified again.",
			tracked.DomainName),
	}, domain.ChannelPreference{Email: true, InApp: true})
	if err != nil {
		return fmt.Errorf("could not dispatch revocation notification: %w", err)
	}

	return nil
}

// Archive pauses monitoring for a domain; Unarchive resumes it.
func (s *Service) Archive(ctx context.Context, id domain.TrackedDomainID) error {
	now := time.Now().UTC()

	return s.setTimestamp(ctx, id, storage.TrackedDomainUpdates{ArchivedAt: &now})
}

func (s *Service) Unarchive(ctx context.Context, id domain.TrackedDomainID) error {
	var zero time.Time

	return s.setTimestamp(ctx, id, storage.TrackedDomainUpdates{ArchivedAt: &zero})
}

// Mute silences notifications for a domain; Unmute restores them.
func (s *Service) Mute(ctx context.Context, id domain.TrackedDomainID) error {
	now := time.Now().UTC()

	return s.setTimestamp(ctx, id, storage.TrackedDomainUpdates{MutedAt: &now})
}

func (s *Service) Unmute(ctx context.Context, id domain.TrackedDomainID) error {
	var zero time.Time

	return s.setTimestamp(ctx, id, storage.TrackedDomainUpdates{MutedAt: &zero})
}

// Remove deletes a tracked domain owned by the user.
func (s *Service) Remove(ctx context.Context, userID domain.UserID, id domain.TrackedDomainID) error {
	row, err := s.storage.DeleteTrackedDomain(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("could not delete tracked domain: %w", err)
	}
	if row == nil {
		return serrors.With(serrors.ErrNotFound, "tracked domain not found")
	}

	return nil
}

func (s *Service) setTimestamp(ctx context.Context,
	id domain.TrackedDomainID,
	updates storage.TrackedDomainUpdates) error {
	row, err := s.storage.UpdateTrackedDomain(ctx, id, updates)
	if err != nil {
		return fmt.Errorf("could not update tracked domain: %w", err)
	}
	if row == nil {
		return serrors.With(serrors.ErrNotFound, "tracked domain not found")
	}

	return nil
}

func (s *Service) tracked(ctx context.Context, id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	tracked, err := s.storage.TrackedDomainByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("could not load tracked domain: %w", err)
	}
	if tracked == nil {
		return nil, serrors.With(serrors.ErrNotFound, "tracked domain not found")
	}

	return tracked, nil
}
