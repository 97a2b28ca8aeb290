package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/mannyc2/watchify-app-sub000/internal/clients/shopfeed"
	catalogrepo "github.com/mannyc2/watchify-app-sub000/internal/data/repos/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/domain/catalog"
	"github.com/mannyc2/watchify-app-sub000/internal/pkg/dbctx"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/platform/syncerr"
)

// minSyncInterval is the per-source rate limit window. Manual and scheduled
// syncs share it because both go through the same writer queue.
const minSyncInterval = 60 * time.Second

// SyncFailure records one source's failure during a batch run.
type SyncFailure struct {
	SourceID uuid.UUID `json:"source_id"`
	Domain   string    `json:"domain"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// FailureLog is the error-aggregation collaborator a batch run reports into.
type FailureLog interface {
	Reset()
	Collect(f SyncFailure)
	Failures() []SyncFailure
}

type memoryFailureLog struct {
	mu   sync.Mutex
	rows []SyncFailure
}

func NewMemoryFailureLog() FailureLog { return &memoryFailureLog{} }

func (l *memoryFailureLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = nil
}

func (l *memoryFailureLog) Collect(f SyncFailure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, f)
}

func (l *memoryFailureLog) Failures() []SyncFailure {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SyncFailure, len(l.rows))
	copy(out, l.rows)
	return out
}

// SyncService coordinates sync cycles. All catalog writes happen on one
// writer goroutine consuming a job queue, so a manual sync and the scheduled
// batch can never diff against stale state concurrently.
type SyncService interface {
	// Start launches the writer goroutine. Must be called before syncing.
	Start(ctx context.Context)
	// StartScheduler launches the periodic batch loop.
	StartScheduler(ctx context.Context)
	SyncSource(ctx context.Context, id uuid.UUID) ([]catalog.ChangeEventView, error)
	SyncAll(ctx context.Context)
	LastRunFailures() []SyncFailure
}

type syncService struct {
	db        *gorm.DB
	log       *logger.Logger
	feed      shopfeed.Client
	sources   catalogrepo.SourceRepo
	products  catalogrepo.ProductRepo
	variants  catalogrepo.VariantRepo
	snapshots catalogrepo.SnapshotRepo
	events    catalogrepo.ChangeEventRepo
	notifier  NotifierService
	prefs     PreferencesService
	failures  FailureLog

	jobs   chan *syncJob
	flight singleflight.Group
	now    func() time.Time
}

type syncJob struct {
	run  func()
	done chan struct{}
}

func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	feed shopfeed.Client,
	sources catalogrepo.SourceRepo,
	products catalogrepo.ProductRepo,
	variants catalogrepo.VariantRepo,
	snapshots catalogrepo.SnapshotRepo,
	events catalogrepo.ChangeEventRepo,
	notifier NotifierService,
	prefs PreferencesService,
	failures FailureLog,
) SyncService {
	return &syncService{
		db:        db,
		log:       baseLog.With("service", "SyncService"),
		feed:      feed,
		sources:   sources,
		products:  products,
		variants:  variants,
		snapshots: snapshots,
		events:    events,
		notifier:  notifier,
		prefs:     prefs,
		failures:  failures,
		jobs:      make(chan *syncJob, 32),
		now:       time.Now,
	}
}

func (s *syncService) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Sync writer stopped")
				return
			case job := <-s.jobs:
				job.run()
				close(job.done)
			}
		}
	}()
}

func (s *syncService) StartScheduler(ctx context.Context) {
	interval := time.Duration(s.prefs.SyncIntervalMinutes()) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	s.log.Info("Starting sync scheduler", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.log.Info("Sync scheduler stopped")
				return
			case <-ticker.C:
				s.SyncAll(ctx)
			}
		}
	}()
}

// submit runs fn on the writer goroutine and waits for it to finish. The
// caller may give up on a cancelled context, but a job already queued still
// runs to completion; syncs never stop mid-transaction.
func (s *syncService) submit(ctx context.Context, fn func()) error {
	job := &syncJob{run: fn, done: make(chan struct{})}
	select {
	case s.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SyncSource syncs one source and returns the change events it produced.
// Concurrent calls for the same source are coalesced onto a single run.
func (s *syncService) SyncSource(ctx context.Context, id uuid.UUID) ([]catalog.ChangeEventView, error) {
	v, err, _ := s.flight.Do(id.String(), func() (interface{}, error) {
		var views []catalog.ChangeEventView
		var runErr error
		if err := s.submit(ctx, func() {
			views, runErr = s.syncSourceOnWriter(ctx, id)
		}); err != nil {
			return nil, err
		}
		return views, runErr
	})
	if err != nil {
		return nil, err
	}
	views, _ := v.([]catalog.ChangeEventView)
	return views, nil
}

// syncSourceOnWriter is the whole single-source cycle. It only ever runs on
// the writer goroutine.
func (s *syncService) syncSourceOnWriter(ctx context.Context, id uuid.UUID) ([]catalog.ChangeEventView, error) {
	dbc := dbctx.New(ctx)

	src, err := s.sources.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, syncerr.ErrSourceNotFound
	}

	// Rate-limit check and the IsSyncing write happen back to back on the
	// writer, so no second sync can slip between them.
	now := s.now()
	if src.LastFetchedAt != nil {
		if elapsed := now.Sub(*src.LastFetchedAt); elapsed < minSyncInterval {
			return nil, &syncerr.RateLimitedError{RetryAfter: minSyncInterval - elapsed}
		}
	}
	initial := src.LastFetchedAt == nil

	// Persisted before the fetch so observers see the sync start.
	if err := s.sources.UpdateFields(dbc, id, map[string]interface{}{"is_syncing": true}); err != nil {
		return nil, err
	}

	fetched, err := s.feed.FetchCatalog(ctx, src.Domain)
	if err != nil {
		if uerr := s.sources.UpdateFields(dbc, id, map[string]interface{}{"is_syncing": false}); uerr != nil {
			s.log.Warn("Failed to clear is_syncing after fetch error", "source_id", id, "error", uerr)
		}
		return nil, err
	}

	existing, err := s.products.GetActiveBySource(dbc, id)
	if err != nil {
		return nil, s.abort(dbc, id, err)
	}

	extIDs := make([]string, 0, len(fetched))
	for i := range fetched {
		extIDs = append(extIDs, fetched[i].ExternalID)
	}
	removedRows, err := s.products.GetRemovedByExternalIDs(dbc, id, extIDs)
	if err != nil {
		return nil, s.abort(dbc, id, err)
	}
	resurrectable := make(map[string]*catalog.Product, len(removedRows))
	for _, p := range removedRows {
		resurrectable[p.ExternalID] = p
	}

	syncedAt := s.now()
	res := reconcile(existing, resurrectable, fetched, syncedAt)
	if initial {
		// First sync populates state only; there is no prior state to diff
		// against, so no events and no snapshots.
		res.events = nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.WithTx(ctx, tx)
		// The owning source is assigned here, at batch-persist time.
		for _, p := range res.newProducts {
			p.SourceID = id
		}
		for _, e := range res.events {
			e.SourceID = id
		}
		if err := s.products.CreateBatch(txc, res.newProducts); err != nil {
			return err
		}
		if err := s.variants.CreateBatch(txc, res.newVariants); err != nil {
			return err
		}
		for _, p := range res.updatedProducts {
			if err := s.products.Save(txc, p); err != nil {
				return err
			}
		}
		for _, v := range res.updatedVariants {
			if err := s.variants.Save(txc, v); err != nil {
				return err
			}
		}
		if err := s.variants.DeleteByIDs(txc, res.removedVariants); err != nil {
			return err
		}
		if err := s.snapshots.CreateBatch(txc, res.snapshots); err != nil {
			return err
		}
		if err := s.events.CreateBatch(txc, res.events); err != nil {
			return err
		}
		return s.sources.UpdateFields(txc, id, map[string]interface{}{
			"last_fetched_at": syncedAt,
			"is_syncing":      false,
		})
	})
	if err != nil {
		return nil, s.abort(dbc, id, err)
	}

	s.log.Info("Source synced",
		"domain", src.Domain,
		"products", len(fetched),
		"new", len(res.newProducts),
		"events", len(res.events),
		"snapshots", len(res.snapshots),
		"initial", initial,
	)

	views := catalog.NewChangeEventViews(res.events)
	if len(views) > 0 {
		s.notifier.Notify(ctx, views)
	}
	return views, nil
}

// abort clears the syncing flag after a mid-cycle failure and passes the
// original error through.
func (s *syncService) abort(dbc dbctx.Context, id uuid.UUID, err error) error {
	if uerr := s.sources.UpdateFields(dbc, id, map[string]interface{}{"is_syncing": false}); uerr != nil {
		s.log.Warn("Failed to clear is_syncing", "source_id", id, "error", uerr)
	}
	return err
}

// SyncAll sequences every source through the writer queue. Each source is its
// own job, so reads and manual syncs interleave between sources. One source's
// failure never aborts the batch.
func (s *syncService) SyncAll(ctx context.Context) {
	srcs, err := s.sources.List(dbctx.New(ctx))
	if err != nil {
		s.log.Error("Failed to list sources for batch sync", "error", err)
		return
	}

	s.failures.Reset()
	for _, src := range srcs {
		if ctx.Err() != nil {
			return
		}
		_, err := s.SyncSource(ctx, src.ID)
		var rl *syncerr.RateLimitedError
		switch {
		case err == nil:
		case errors.As(err, &rl):
			// Synced recently by someone else; expected, not a fault.
		default:
			s.failures.Collect(SyncFailure{
				SourceID: src.ID,
				Domain:   src.Domain,
				Message:  err.Error(),
				At:       s.now(),
			})
			s.log.Error("Source sync failed", "domain", src.Domain, "error", err)
		}
	}

	s.cleanupRetention(ctx)
}

func (s *syncService) LastRunFailures() []SyncFailure {
	return s.failures.Failures()
}

// cleanupRetention drops events and snapshots past the retention horizon.
// Maintenance only; it is not part of the diff contract.
func (s *syncService) cleanupRetention(ctx context.Context) {
	days := s.prefs.RetentionDays()
	if days <= 0 {
		return
	}
	cutoff := s.now().AddDate(0, 0, -days)
	err := s.submit(ctx, func() {
		dbc := dbctx.New(ctx)
		if n, err := s.events.DeleteOlderThan(dbc, cutoff); err != nil {
			s.log.Warn("Event retention cleanup failed", "error", err)
		} else if n > 0 {
			s.log.Info("Deleted old change events", "count", n)
		}
		if n, err := s.snapshots.DeleteOlderThan(dbc, cutoff); err != nil {
			s.log.Warn("Snapshot retention cleanup failed", "error", err)
		} else if n > 0 {
			s.log.Info("Deleted old snapshots", "count", n)
		}
	})
	if err != nil {
		s.log.Warn("Retention cleanup skipped", "error", err)
	}
}
