// Package monitor implements the snapshot-based change-detection engine. One
// run per tracked domain fetches fresh registration, DNS, header and
// certificate facts concurrently, persists the raw artifacts, diffs each
// category against the stored baseline, and dispatches notifications. A
// category's baseline is only overwritten after its notification was
// confirmed dispatched ("commit-on-send"), so unacknowledged changes are
// re-detected on the next run.
package monitor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"domainstack/internal/catalog"
	"domainstack/internal/notify"
	"domainstack/internal/probe"
	"domainstack/internal/rules"
	"domainstack/pkg/domain"
	"domainstack/pkg/logger"
	"domainstack/pkg/storage"
)

// Skip reasons for runs that end without diffing.
const (
	SkipSnapshotNotFound = "snapshot_not_found"
	SkipNotVerified      = "not_verified"
	SkipArchived         = "archived"
	SkipNotFound         = "domain_not_found"
)

// Detector coordinates change-detection runs.
type Detector struct {
	storage      storage.Storage
	catalog      *catalog.Catalog
	dispatcher   *notify.Dispatcher
	resolver     probe.Resolver
	certs        probe.CertGrabber
	fetcher      probe.Fetcher
	registration probe.RegistrationClient
}

// NewDetector builds a detector over the given collaborators.
func NewDetector(strg storage.Storage,
	cat *catalog.Catalog,
	dispatcher *notify.Dispatcher,
	resolver probe.Resolver,
	certs probe.CertGrabber,
	fetcher probe.Fetcher,
	registration probe.RegistrationClient) *Detector {
	return &Detector{
		storage:      strg,
		catalog:      cat,
		dispatcher:   dispatcher,
		resolver:     resolver,
		certs:        certs,
		fetcher:      fetcher,
		registration: registration,
	}
}

// fetched collects the results of the concurrent fetch phase. Nil pointers
// and false flags mean the corresponding fetch failed; the diff phase treats
// missing data as "not applicable", never as a change.
type fetched struct {
	registration *domain.RegistrationFacts
	dns          *domain.DNSFacts
	headers      map[string]string
	chain        []domain.Certificate

	// mxResolved distinguishes "MX lookup answered" (possibly with zero
	// records) from a transient lookup failure. Without it, a failed MX
	// lookup next to a successful NS lookup would read as the email
	// provider disappearing.
	mxResolved bool
}

// DetectChanges executes one coordinated run for a tracked domain and
// reports which categories changed. The returned flags reflect detected
// diffs, independent of whether a notification went out or a baseline was
// committed.
func (d *Detector) DetectChanges(ctx context.Context, id domain.TrackedDomainID) (result domain.ChangeRunResult, err error) {
	started := time.Now().UTC()
	result = domain.ChangeRunResult{RanAt: started}
	defer func() {
		if err == nil {
			observeRun(result, time.Since(started))
		}
	}()

	tracked, err := d.storage.TrackedDomainByID(ctx, id)
	if err != nil {
		return result, fmt.Errorf("could not load tracked domain: %w", err)
	}
	switch {
	case tracked == nil:
		result.SkipReason = SkipNotFound

		return result, nil
	case !tracked.Verified:
		result.SkipReason = SkipNotVerified

		return result, nil
	case tracked.Archived():
		result.SkipReason = SkipArchived

		return result, nil
	}

	snapshot, err := d.storage.SnapshotByTrackedDomain(ctx, id)
	if err != nil {
		return result, fmt.Errorf("could not load snapshot: %w", err)
	}
	if snapshot == nil {
		// Never fabricate a baseline mid-run; the first verification is
		// responsible for creating the empty snapshot.
		result.SkipReason = SkipSnapshotNotFound

		return result, nil
	}

	fresh := d.fetchAll(ctx, tracked.DomainName)
	if err := d.persistArtifacts(ctx, id, fresh); err != nil {
		return result, err
	}

	facts := d.buildFacts(fresh)

	regChange, regNext, regApplicable := d.diffRegistrationPipeline(fresh, snapshot, facts)
	if regApplicable && regChange.Any() {
		result.RegistrationChanges = true
		if err := d.notifyAndCommit(ctx, *tracked, domain.ChangeRegistration,
			func() (string, string) { return registrationMessage(tracked.DomainName, regChange, d.catalog) },
			func(c context.Context) error {
				return d.storage.CommitRegistrationBaseline(c, id, regNext)
			}, started); err != nil {
			return result, err
		}
	}

	provChange, provNext, have := d.diffProviderPipeline(fresh, snapshot, facts)
	if provChange.Any() {
		result.ProviderChanges = true
		if err := d.notifyAndCommit(ctx, *tracked, domain.ChangeProvider,
			func() (string, string) { return providerMessage(tracked.DomainName, provChange, d.catalog) },
			func(c context.Context) error {
				return d.storage.CommitProviderBaseline(c, id, mergeProviderBaseline(snapshot.Providers(), provNext, have))
			}, started); err != nil {
			return result, err
		}
	}

	certChange, certNext, certApplicable := d.diffCertificatePipeline(fresh, snapshot, facts)
	if certApplicable && certChange.Any() {
		result.CertificateChanges = true
		if err := d.notifyAndCommit(ctx, *tracked, domain.ChangeCertificate,
			func() (string, string) { return certificateMessage(tracked.DomainName, certChange, d.catalog) },
			func(c context.Context) error {
				return d.storage.CommitCertificateBaseline(c, id, certNext)
			}, started); err != nil {
			return result, err
		}
	}

	return result, nil
}

// fetchAll runs the four fetches concurrently. Individual failures are
// logged and leave their slot empty; the run proceeds with whatever data
// arrived.
func (d *Detector) fetchAll(ctx context.Context, domainName string) fetched {
	var fresh fetched
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		facts, err := d.registration.Lookup(gctx, domainName)
		if err != nil {
			logger.Warn(gctx, "registration lookup failed", zap.String("domain", domainName), zap.Error(err))

			return nil
		}
		fresh.registration = facts

		return nil
	})
	g.Go(func() error {
		var facts domain.DNSFacts
		var nsErr, mxErr error
		facts.NS, nsErr = d.resolver.LookupNS(gctx, domainName)
		facts.MX, mxErr = d.resolver.LookupMX(gctx, domainName)
		facts.A, _ = d.resolver.LookupHost(gctx, domainName)
		if nsErr != nil && mxErr != nil {
			logger.Warn(gctx, "dns lookup failed", zap.String("domain", domainName), zap.Error(nsErr))

			return nil
		}
		if mxErr != nil {
			logger.Warn(gctx, "mx lookup failed", zap.String("domain", domainName), zap.Error(mxErr))
		}
		fresh.dns = &facts
		fresh.mxResolved = mxErr == nil

		return nil
	})
	g.Go(func() error {
		headers, err := d.fetcher.Headers(gctx, "https://"+domainName+"/")
		if err != nil {
			logger.Warn(gctx, "header fetch failed", zap.String("domain", domainName), zap.Error(err))

			return nil
		}
		fresh.headers = headers

		return nil
	})
	g.Go(func() error {
		chain, err := d.certs.CertChain(gctx, domainName)
		if err != nil {
			logger.Warn(gctx, "certificate fetch failed", zap.String("domain", domainName), zap.Error(err))

			return nil
		}
		fresh.chain = chain

		return nil
	})

	// Fetch goroutines swallow their errors, so Wait only synchronizes.
	_ = g.Wait()

	return fresh
}

// persistArtifacts stores every successfully fetched artifact, independent of
// whether any change is detected later.
func (d *Detector) persistArtifacts(ctx context.Context, id domain.TrackedDomainID, fresh fetched) error {
	if fresh.registration != nil {
		if err := d.storage.StoreArtifact(ctx, id, "registration", fresh.registration); err != nil {
			return fmt.Errorf("could not persist registration artifact: %w", err)
		}
	}
	if fresh.dns != nil {
		if err := d.storage.StoreArtifact(ctx, id, "dns", fresh.dns); err != nil {
			return fmt.Errorf("could not persist dns artifact: %w", err)
		}
	}
	if fresh.headers != nil {
		if err := d.storage.StoreArtifact(ctx, id, "headers", fresh.headers); err != nil {
			return fmt.Errorf("could not persist headers artifact: %w", err)
		}
	}
	if fresh.chain != nil {
		if err := d.storage.StoreArtifact(ctx, id, "certificates", fresh.chain); err != nil {
			return fmt.Errorf("could not persist certificate artifact: %w", err)
		}
	}

	return nil
}

func (d *Detector) buildFacts(fresh fetched) rules.Context {
	facts := rules.Context{Headers: fresh.headers}
	if fresh.dns != nil {
		facts.NS = fresh.dns.NS
		facts.MX = fresh.dns.MX
	}
	if len(fresh.chain) > 0 {
		facts.Issuer = fresh.chain[0].Issuer
	}
	if fresh.registration != nil {
		facts.Registrar = fresh.registration.RegistrarName
	}

	return facts
}

// diffRegistrationPipeline classifies fresh registration facts and diffs
// them. Applicable only when registration data arrived and the domain is
// currently registered.
func (d *Detector) diffRegistrationPipeline(fresh fetched,
	snapshot *domain.Snapshot,
	facts rules.Context) (domain.RegistrationChange, domain.RegistrationBaseline, bool) {
	if fresh.registration == nil || !fresh.registration.Registered {
		return domain.RegistrationChange{}, domain.RegistrationBaseline{}, false
	}

	next := domain.RegistrationBaseline{
		RegistrarProviderID: d.catalog.Classify(domain.ProviderRegistrar, facts),
		Nameservers:         fresh.registration.Nameservers,
		TransferLock:        fresh.registration.TransferLock,
		Statuses:            fresh.registration.Statuses,
	}

	return diffRegistration(snapshot.Registration(), next), next, true
}

// diffProviderPipeline classifies dns/hosting/email providers from whichever
// facts arrived and diffs each sub-field independently.
func (d *Detector) diffProviderPipeline(fresh fetched,
	snapshot *domain.Snapshot,
	facts rules.Context) (domain.ProviderChange, domain.ProviderBaseline, providerPresence) {
	have := providerPresence{
		dns:     fresh.dns != nil && len(fresh.dns.NS) > 0,
		hosting: fresh.headers != nil,
		email:   fresh.dns != nil && fresh.mxResolved,
	}
	next := domain.ProviderBaseline{}
	if have.dns {
		next.DNSProviderID = d.catalog.Classify(domain.ProviderDNS, facts)
	}
	if have.hosting {
		next.HostingProviderID = d.catalog.Classify(domain.ProviderHosting, facts)
	}
	if have.email {
		next.EmailProviderID = d.catalog.Classify(domain.ProviderEmail, facts)
	}

	return diffProviders(snapshot.Providers(), next, have), next, have
}

// diffCertificatePipeline diffs the leaf certificate. Applicable only when a
// chain was fetched.
func (d *Detector) diffCertificatePipeline(fresh fetched,
	snapshot *domain.Snapshot,
	facts rules.Context) (domain.CertificateChange, domain.CertificateBaseline, bool) {
	if len(fresh.chain) == 0 {
		return domain.CertificateChange{}, domain.CertificateBaseline{}, false
	}

	leaf := fresh.chain[0]
	next := domain.CertificateBaseline{
		CAProviderID: d.catalog.Classify(domain.ProviderCA, facts),
		Issuer:       leaf.Issuer,
		ValidTo:      leaf.ValidTo,
	}

	return diffCertificate(snapshot.Certificate(), next), next, true
}

// mergeProviderBaseline keeps baseline values for sub-fields whose fresh
// lookup failed, so a fetch outage never erases an acknowledged provider.
func mergeProviderBaseline(prev, next domain.ProviderBaseline, have providerPresence) domain.ProviderBaseline {
	out := next
	if !have.dns {
		out.DNSProviderID = prev.DNSProviderID
	}
	if !have.hosting {
		out.HostingProviderID = prev.HostingProviderID
	}
	if !have.email {
		out.EmailProviderID = prev.EmailProviderID
	}

	return out
}

// notifyAndCommit runs the strictly ordered tail of one category pipeline:
// resolve channel preferences, compose, dispatch, and only then commit the
// baseline. When no channel is enabled (or the domain is muted) the baseline
// is left untouched so the change is re-detected on the next run.
func (d *Detector) notifyAndCommit(ctx context.Context,
	tracked domain.TrackedDomain,
	category domain.ChangeCategory,
	compose func() (string, string),
	commit func(context.Context) error,
	ranAt time.Time) error {
	if tracked.Muted() {
		logger.Debug(ctx, "domain muted, leaving baseline uncommitted",
			zap.String("domain", tracked.DomainName), zap.String("category", string(category)))

		return nil
	}

	global, override, err := d.storage.PreferencesFor(ctx, tracked.UserID, tracked.ID, category)
	if err != nil {
		return fmt.Errorf("could not resolve notification preferences: %w", err)
	}
	pref := domain.ResolvePreference(global, override)
	if !pref.Enabled() {
		logger.Debug(ctx, "no notification channel enabled, leaving baseline uncommitted",
			zap.String("domain", tracked.DomainName), zap.String("category", string(category)))

		return nil
	}

	subject, body := compose()
	dispatched, err := d.dispatcher.Dispatch(ctx, notify.Message{
		TrackedDomainID: tracked.ID,
		UserID:          tracked.UserID,
		Type:            string(category),
		Bucket:          ranAt.Format(time.DateOnly),
		Subject:         subject,
		Body:            body,
	}, pref)
	if err != nil {
		return fmt.Errorf("could not dispatch %s notification: %w", category, err)
	}
	if !dispatched {
		return nil
	}

	// Baseline commit is the terminal step of the pipeline; it must never
	// precede confirmed dispatch.
	if err := commit(ctx); err != nil {
		return fmt.Errorf("could not commit %s baseline: %w", category, err)
	}

	return nil
}
