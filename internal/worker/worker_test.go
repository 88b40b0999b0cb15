package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"domainstack/internal/catalog"
	"domainstack/internal/monitor"
	"domainstack/internal/notify"
	"domainstack/internal/verify"
	"domainstack/internal/worker"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/storage"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

// fakeStorage covers the storage surface the workers exercise. Embedding the
// interface makes any untouched method panic loudly.
type fakeStorage struct {
	storage.Storage

	domains  map[domain.TrackedDomainID]*domain.TrackedDomain
	jobs     []string
	verified []domain.TrackedDomain
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{domains: map[domain.TrackedDomainID]*domain.TrackedDomain{}}
}

func (f *fakeStorage) TrackedDomainByID(_ context.Context,
	id domain.TrackedDomainID) (*domain.TrackedDomain, error) {
	return f.domains[id], nil
}

func (f *fakeStorage) UpdateTrackedDomain(_ context.Context,
	id domain.TrackedDomainID,
	updates storage.TrackedDomainUpdates) (*domain.TrackedDomain, error) {
	d := f.domains[id]
	if d == nil {
		return nil, nil
	}
	if updates.Verified != nil {
		d.Verified = *updates.Verified
	}
	if updates.Method != nil {
		d.VerificationMethod = *updates.Method
	}

	return d, nil
}

func (f *fakeStorage) VerifiedTrackedDomains(_ context.Context) ([]domain.TrackedDomain, error) {
	return f.verified, nil
}

func (f *fakeStorage) CreateSnapshot(_ context.Context, _ domain.TrackedDomainID) error {
	return nil
}

func (f *fakeStorage) AddJob(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (bool, error) {
	f.jobs = append(f.jobs, args.Kind())

	return true, nil
}

func (f *fakeStorage) WithTx(ctx context.Context, cb func(storage.AllStorage) error) error {
	return cb(f)
}

type fakeResolver struct {
	txt map[string][]string
}

func (f fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	return f.txt[name], nil
}
func (f fakeResolver) LookupNS(_ context.Context, _ string) ([]string, error)   { return nil, nil }
func (f fakeResolver) LookupMX(_ context.Context, _ string) ([]string, error)   { return nil, nil }
func (f fakeResolver) LookupHost(_ context.Context, _ string) ([]string, error) { return nil, nil }

type fakeFetcher struct{}

func (fakeFetcher) Body(_ context.Context, _ string) ([]byte, error) { return nil, nil }
func (fakeFetcher) Headers(_ context.Context, _ string) (map[string]string, error) {
	return nil, nil
}

func testOptions() verify.Options {
	return verify.Options{
		ScheduleBase:      30 * time.Minute,
		ScheduleCap:       24 * time.Hour,
		ScheduleWindow:    30 * 24 * time.Hour,
		GracePeriod:       7 * 24 * time.Hour,
		ManualMinInterval: time.Minute,
	}
}

func newService(strg storage.Storage, resolver fakeResolver) *verify.Service {
	dispatcher := notify.NewDispatcher(strg, notify.NopMailer{}, nopRecipients{})

	return verify.NewService(strg, verify.NewVerifier(resolver, fakeFetcher{}), dispatcher, testOptions())
}

type nopRecipients struct{}

func (nopRecipients) EmailFor(_ context.Context, _ domain.UserID) (string, error) {
	return "owner@example.com", nil
}

func makeVerifyJob(id int64, attempt int, trackedID uuid.UUID) *river.Job[verify.VerifyArgs] {
	return &river.Job[verify.VerifyArgs]{
		JobRow: &rivertype.JobRow{ID: id, Attempt: attempt},
		Args:   verify.VerifyArgs{TrackedDomainID: trackedID},
	}
}

func TestVerifyDomainWorkerCancelsWhenDomainRemoved(t *testing.T) {
	strg := newFakeStorage()
	w := worker.NewVerifyDomainWorker(newService(strg, fakeResolver{}), strg)

	err := w.Work(context.Background(), makeVerifyJob(1, 1, uuid.New()))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestVerifyDomainWorkerNoopWhenAlreadyVerified(t *testing.T) {
	strg := newFakeStorage()
	id := domain.TrackedDomainID(uuid.New())
	strg.domains[id] = &domain.TrackedDomain{
		ID:                 id,
		DomainName:         "example.com",
		Verified:           true,
		VerificationMethod: domain.MethodDNSTXT,
		CreatedAt:          time.Now(),
	}
	w := worker.NewVerifyDomainWorker(newService(strg, fakeResolver{}), strg)

	require.NoError(t, w.Work(context.Background(), makeVerifyJob(2, 3, uuid.UUID(id))))
	require.Empty(t, strg.jobs)
}

func TestVerifyDomainWorkerSnoozesOnFailure(t *testing.T) {
	strg := newFakeStorage()
	id := domain.TrackedDomainID(uuid.New())
	strg.domains[id] = &domain.TrackedDomain{
		ID:         id,
		DomainName: "example.com",
		CreatedAt:  time.Now(),
	}
	w := worker.NewVerifyDomainWorker(newService(strg, fakeResolver{}), strg)

	for _, tc := range []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 30 * time.Minute},
		{attempt: 2, want: time.Hour},
		{attempt: 7, want: 24 * time.Hour},
	} {
		err := w.Work(context.Background(), makeVerifyJob(3, tc.attempt, uuid.UUID(id)))
		require.Error(t, err)
		var snoozeErr *river.JobSnoozeError
		require.ErrorAs(t, err, &snoozeErr)
		require.Equal(t, tc.want, snoozeErr.Duration)
	}
}

func TestVerifyDomainWorkerCancelsAfterWindow(t *testing.T) {
	strg := newFakeStorage()
	id := domain.TrackedDomainID(uuid.New())
	strg.domains[id] = &domain.TrackedDomain{
		ID:         id,
		DomainName: "example.com",
		CreatedAt:  time.Now().Add(-31 * 24 * time.Hour),
	}
	w := worker.NewVerifyDomainWorker(newService(strg, fakeResolver{}), strg)

	err := w.Work(context.Background(), makeVerifyJob(4, 12, uuid.UUID(id)))
	require.Error(t, err)
	var cancelErr *river.JobCancelError
	require.ErrorAs(t, err, &cancelErr)
}

func TestVerifyDomainWorkerSuccessEnqueuesMonitorRun(t *testing.T) {
	strg := newFakeStorage()
	id := domain.TrackedDomainID(uuid.New())
	token := "2f1b56c0a4de4bb0a7f3a7708a2f9ce1"
	strg.domains[id] = &domain.TrackedDomain{
		ID:                id,
		DomainName:        "example.com",
		VerificationToken: token,
		CreatedAt:         time.Now(),
	}
	resolver := fakeResolver{txt: map[string][]string{
		"example.com": {"domainstack-verify=" + token},
	}}
	w := worker.NewVerifyDomainWorker(newService(strg, resolver), strg)

	require.NoError(t, w.Work(context.Background(), makeVerifyJob(5, 2, uuid.UUID(id))))
	require.True(t, strg.domains[id].Verified)
	require.Equal(t, []string{monitor.Args{}.Kind()}, strg.jobs)
}

func TestScheduleRunsWorkerFansOut(t *testing.T) {
	strg := newFakeStorage()
	strg.verified = []domain.TrackedDomain{
		{ID: domain.TrackedDomainID(uuid.New()), DomainName: "a.example", Verified: true},
		{ID: domain.TrackedDomainID(uuid.New()), DomainName: "b.example", Verified: true},
	}
	w := worker.NewScheduleRunsWorker(strg)

	job := &river.Job[monitor.ScheduleRunsArgs]{JobRow: &rivertype.JobRow{ID: 6}}
	require.NoError(t, w.Work(context.Background(), job))
	require.Equal(t, []string{monitor.Args{}.Kind(), monitor.Args{}.Kind()}, strg.jobs)
}

func TestGraceSweepWorkerRunsSweep(t *testing.T) {
	strg := newFakeStorage()
	w := worker.NewGraceSweepWorker(newService(strg, fakeResolver{}))

	job := &river.Job[verify.GraceSweepArgs]{JobRow: &rivertype.JobRow{ID: 7}}
	require.NoError(t, w.Work(context.Background(), job))
}

func TestMonitorDomainWorkerSkipsMissingDomain(t *testing.T) {
	strg := newFakeStorage()
	cat := catalog.New(context.Background(), nil)
	dispatcher := notify.NewDispatcher(strg, notify.NopMailer{}, nopRecipients{})
	detector := monitor.NewDetector(strg, cat, dispatcher, fakeResolver{}, nil, fakeFetcher{}, nil)
	w := worker.NewMonitorDomainWorker(detector)

	job := &river.Job[monitor.Args]{
		JobRow: &rivertype.JobRow{ID: 8},
		Args:   monitor.Args{TrackedDomainID: uuid.New()},
	}
	require.NoError(t, w.Work(context.Background(), job))
	require.Empty(t, strg.jobs)
}
