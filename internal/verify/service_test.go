package verify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"

	"domainstack/internal/notify"
	"domainstack/internal/probe"
	"domainstack/pkg/domain"
	"domainstack/pkg/serrors"
	"domainstack/pkg/storage"
)

// fakeStorage implements the storage methods the verification service
// touches; the embedded interface panics on anything else. WithTx runs the
// callback directly against the fake, which is enough to assert that the
// row insert and job insert travel together.
type fakeStorage struct {
	storage.Storage

	mu sync.Mutex

	domains   map[domain.TrackedDomainID]*domain.TrackedDomain
	snapshots map[domain.TrackedDomainID]bool
	jobs      []string

	notifications []domain.Notification
	dedupeKeys    map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		domains:    make(map[domain.TrackedDomainID]*domain.TrackedDomain),
		snapshots:  make(map[domain.TrackedDomainID]bool),
		dedupeKeys: make(map[string]bool),
	}
}

func (f *fakeStorage) WithTx(_ context.Context, cb func(storage.AllStorage) error) error {
	return cb(f)
}

func (f *fakeStorage) StoreTrackedDomain(_ context.Context, d domain.TrackedDomain) (*domain.TrackedDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	f.domains[d.ID] = &d
	row := d

	return &row, nil
}

func (f *fakeStorage) TrackedDomainByID(_ context.Context, id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.domains[id]
	if !ok {
		return nil, nil
	}
	row := *d

	return &row, nil
}

func (f *fakeStorage) UpdateTrackedDomain(_ context.Context,
	id domain.TrackedDomainID,
	updates storage.TrackedDomainUpdates) (*domain.TrackedDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.domains[id]
	if !ok {
		return nil, nil
	}
	if updates.Verified != nil {
		d.Verified = *updates.Verified
	}
	if updates.Method != nil {
		d.VerificationMethod = *updates.Method
	}
	if updates.GraceExpiresAt != nil {
		d.GraceExpiresAt = *updates.GraceExpiresAt
	}
	if updates.LastManualCheckAt != nil {
		d.LastManualCheckAt = *updates.LastManualCheckAt
	}
	if updates.ArchivedAt != nil {
		d.ArchivedAt = *updates.ArchivedAt
	}
	if updates.MutedAt != nil {
		d.MutedAt = *updates.MutedAt
	}
	d.UpdatedAt = time.Now().UTC()
	row := *d

	return &row, nil
}

func (f *fakeStorage) DeleteTrackedDomain(_ context.Context,
	userID domain.UserID,
	id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.domains[id]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	delete(f.domains, id)

	return d, nil
}

func (f *fakeStorage) VerifiedTrackedDomains(context.Context) ([]domain.TrackedDomain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TrackedDomain
	for _, d := range f.domains {
		if d.Verified && !d.Archived() {
			out = append(out, *d)
		}
	}

	return out, nil
}

func (f *fakeStorage) CreateSnapshot(_ context.Context, id domain.TrackedDomainID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[id] = true

	return nil
}

func (f *fakeStorage) AddJob(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, args.Kind())

	return true, nil
}

func (f *fakeStorage) StoreNotification(_ context.Context, n domain.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dedupeKeys[n.DedupeKey] {
		return false, nil
	}
	f.dedupeKeys[n.DedupeKey] = true
	f.notifications = append(f.notifications, n)

	return true, nil
}

// countingResolver wraps fakeResolver and counts TXT lookups, to prove the
// no-op paths never touch the network.
type countingResolver struct {
	fakeResolver

	calls int
}

func (c *countingResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	c.calls++

	return c.fakeResolver.LookupTXT(ctx, name)
}

func testOptions() Options {
	return Options{
		ScheduleBase:      30 * time.Minute,
		ScheduleCap:       24 * time.Hour,
		ScheduleWindow:    30 * 24 * time.Hour,
		GracePeriod:       7 * 24 * time.Hour,
		ManualMinInterval: time.Minute,
	}
}

func newTestService(strg *fakeStorage, resolver probe.Resolver, fetcher *fakeFetcher) *Service {
	dispatcher := notify.NewDispatcher(strg, notify.NopMailer{}, nopRecipients{})

	return NewService(strg, NewVerifier(resolver, fetcher), dispatcher, testOptions())
}

type nopRecipients struct{}

func (nopRecipients) EmailFor(context.Context, domain.UserID) (string, error) {
	return "owner@example.com", nil
}

func TestTrack(t *testing.T) {
	strg := newFakeStorage()
	svc := newTestService(strg, &fakeResolver{}, &fakeFetcher{})
	userID := domain.UserID(uuid.New())

	tracked, err := svc.Track(context.Background(), userID, "HTTPS://Example.COM/some/path")
	require.NoError(t, err)
	require.Equal(t, "example.com", tracked.DomainName)
	require.Equal(t, userID, tracked.UserID)
	require.Len(t, tracked.VerificationToken, 32)
	require.False(t, tracked.Verified)

	// The automatic verification job is enqueued with the row.
	require.Equal(t, []string{VerifyArgs{}.Kind()}, strg.jobs)
}

func TestTrackRejectsInvalidDomain(t *testing.T) {
	strg := newFakeStorage()
	svc := newTestService(strg, &fakeResolver{}, &fakeFetcher{})

	_, err := svc.Track(context.Background(), domain.UserID(uuid.New()), "not a domain")
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.Empty(t, strg.domains)
	require.Empty(t, strg.jobs)
}

func TestVerifyFirstSuccessCreatesSnapshot(t *testing.T) {
	strg := newFakeStorage()
	userID := domain.UserID(uuid.New())
	resolver := &countingResolver{}
	svc := newTestService(strg, resolver, &fakeFetcher{})

	tracked, err := svc.Track(context.Background(), userID, "example.com")
	require.NoError(t, err)

	resolver.txt = map[string][]string{
		"example.com": {TXTValue(tracked.VerificationToken)},
	}

	res, err := svc.Verify(context.Background(), tracked.ID, "")
	require.NoError(t, err)
	require.True(t, res.Verified)
	require.Equal(t, domain.MethodDNSTXT, res.Method)

	stored := strg.domains[tracked.ID]
	require.True(t, stored.Verified)
	require.Equal(t, domain.MethodDNSTXT, stored.VerificationMethod)
	require.True(t, strg.snapshots[tracked.ID])

	// Re-verifying is a no-op: same result, no further lookups.
	before := resolver.calls
	res, err = svc.Verify(context.Background(), tracked.ID, "")
	require.NoError(t, err)
	require.True(t, res.Verified)
	require.Equal(t, domain.MethodDNSTXT, res.Method)
	require.Equal(t, before, resolver.calls)
}

func TestVerifyWithoutProof(t *testing.T) {
	strg := newFakeStorage()
	svc := newTestService(strg, &fakeResolver{}, &fakeFetcher{})

	tracked, err := svc.Track(context.Background(), domain.UserID(uuid.New()), "example.com")
	require.NoError(t, err)

	res, err := svc.Verify(context.Background(), tracked.ID, "")
	require.NoError(t, err)
	require.False(t, res.Verified)
	require.False(t, strg.domains[tracked.ID].Verified)
	require.False(t, strg.snapshots[tracked.ID])
}

func TestVerifyUnknownDomain(t *testing.T) {
	svc := newTestService(newFakeStorage(), &fakeResolver{}, &fakeFetcher{})

	_, err := svc.Verify(context.Background(), domain.TrackedDomainID(uuid.New()), "")
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestManualVerifyRateLimit(t *testing.T) {
	strg := newFakeStorage()
	svc := newTestService(strg, &fakeResolver{}, &fakeFetcher{})

	tracked, err := svc.Track(context.Background(), domain.UserID(uuid.New()), "example.com")
	require.NoError(t, err)

	res, err := svc.ManualVerify(context.Background(), tracked.ID, "")
	require.NoError(t, err)
	require.False(t, res.Verified)

	// A second trigger inside the minimum interval is rejected without a
	// verification attempt.
	_, err = svc.ManualVerify(context.Background(), tracked.ID, "")
	require.ErrorIs(t, err, serrors.ErrRateLimited)

	// Backdating the last check reopens the window.
	past := time.Now().UTC().Add(-2 * time.Minute)
	strg.domains[tracked.ID].LastManualCheckAt = past
	_, err = svc.ManualVerify(context.Background(), tracked.ID, "")
	require.NoError(t, err)
}

func TestScheduleFor(t *testing.T) {
	svc := newTestService(newFakeStorage(), &fakeResolver{}, &fakeFetcher{})

	require.Equal(t, 30*time.Minute, svc.ScheduleFor(1))
	require.Equal(t, time.Hour, svc.ScheduleFor(2))
	require.Equal(t, 2*time.Hour, svc.ScheduleFor(3))
	require.Equal(t, 16*time.Hour, svc.ScheduleFor(6))
	require.Equal(t, 24*time.Hour, svc.ScheduleFor(7))
	require.Equal(t, 24*time.Hour, svc.ScheduleFor(20))

	// Defensive clamp for nonsense attempt counts.
	require.Equal(t, 30*time.Minute, svc.ScheduleFor(0))
}

func TestWindowExpired(t *testing.T) {
	svc := newTestService(newFakeStorage(), &fakeResolver{}, &fakeFetcher{})
	createdAt := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.False(t, svc.WindowExpired(createdAt, createdAt.Add(29*24*time.Hour)))
	require.True(t, svc.WindowExpired(createdAt, createdAt.Add(31*24*time.Hour)))
}

func TestSweepGraceLifecycle(t *testing.T) {
	strg := newFakeStorage()
	resolver := &fakeResolver{}
	svc := newTestService(strg, resolver, &fakeFetcher{})

	tracked, err := svc.Track(context.Background(), domain.UserID(uuid.New()), "example.com")
	require.NoError(t, err)

	resolver.txt = map[string][]string{"example.com": {TXTValue(tracked.VerificationToken)}}
	_, err = svc.Verify(context.Background(), tracked.ID, "")
	require.NoError(t, err)

	// Proof still present: sweep changes nothing.
	require.NoError(t, svc.Sweep(context.Background()))
	require.True(t, strg.domains[tracked.ID].GraceExpiresAt.IsZero())
	require.Empty(t, strg.notifications)

	// Proof disappears: the domain enters grace and the user is notified.
	resolver.txt = nil
	require.NoError(t, svc.Sweep(context.Background()))
	stored := strg.domains[tracked.ID]
	require.True(t, stored.Verified)
	require.False(t, stored.GraceExpiresAt.IsZero())
	require.Len(t, strg.notifications, 1)
	require.Equal(t, "grace_period", strg.notifications[0].Type)

	// Another sweep inside the grace period is quiet.
	require.NoError(t, svc.Sweep(context.Background()))
	require.Len(t, strg.notifications, 1)
	require.True(t, strg.domains[tracked.ID].Verified)

	// Grace expires: verification is revoked and a second notification goes
	// out.
	strg.domains[tracked.ID].GraceExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, svc.Sweep(context.Background()))
	stored = strg.domains[tracked.ID]
	require.False(t, stored.Verified)
	require.Empty(t, stored.VerificationMethod)
	require.True(t, stored.GraceExpiresAt.IsZero())
	require.Len(t, strg.notifications, 2)
	require.Equal(t, "verification_revoked", strg.notifications[1].Type)
}

func TestSweepProofRestoredClearsGrace(t *testing.T) {
	strg := newFakeStorage()
	resolver := &fakeResolver{}
	fetcher := &fakeFetcher{}
	svc := newTestService(strg, resolver, fetcher)

	tracked, err := svc.Track(context.Background(), domain.UserID(uuid.New()), "example.com")
	require.NoError(t, err)

	resolver.txt = map[string][]string{"example.com": {TXTValue(tracked.VerificationToken)}}
	_, err = svc.Verify(context.Background(), tracked.ID, "")
	require.NoError(t, err)

	resolver.txt = nil
	require.NoError(t, svc.Sweep(context.Background()))
	require.False(t, strg.domains[tracked.ID].GraceExpiresAt.IsZero())

	// The owner republishes proof via a different method; the sweep accepts
	// it, clears the grace deadline and records the new method.
	fetcher.bodies = map[string]string{
		"https://example.com/": `<head>` + MetaTag(tracked.VerificationToken) + `</head>`,
	}
	require.NoError(t, svc.Sweep(context.Background()))
	stored := strg.domains[tracked.ID]
	require.True(t, stored.Verified)
	require.True(t, stored.GraceExpiresAt.IsZero())
	require.Equal(t, domain.MethodMetaTag, stored.VerificationMethod)
}

func TestArchiveMuteRemove(t *testing.T) {
	strg := newFakeStorage()
	svc := newTestService(strg, &fakeResolver{}, &fakeFetcher{})
	userID := domain.UserID(uuid.New())

	tracked, err := svc.Track(context.Background(), userID, "example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Archive(context.Background(), tracked.ID))
	require.True(t, strg.domains[tracked.ID].Archived())
	require.NoError(t, svc.Unarchive(context.Background(), tracked.ID))
	require.False(t, strg.domains[tracked.ID].Archived())

	require.NoError(t, svc.Mute(context.Background(), tracked.ID))
	require.True(t, strg.domains[tracked.ID].Muted())
	require.NoError(t, svc.Unmute(context.Background(), tracked.ID))
	require.False(t, strg.domains[tracked.ID].Muted())

	// Removal is owner-scoped.
	err = svc.Remove(context.Background(), domain.UserID(uuid.New()), tracked.ID)
	require.True(t, errors.Is(err, serrors.ErrNotFound))
	require.NoError(t, svc.Remove(context.Background(), userID, tracked.ID))
	require.Empty(t, strg.domains)
}
