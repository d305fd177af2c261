package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/scorg/internal/models"
	"github.com/desertthunder/scorg/internal/scope"
	"github.com/desertthunder/scorg/internal/services"
	"github.com/desertthunder/scorg/internal/shared"
)

// SyncEngine files a stream into monthly collections.
type SyncEngine interface {
	// Run resolves filters against now, fetches the stream and reconciles each month's collection.
	Run(ctx context.Context, filters models.Filters, now time.Time) (*models.RunReport, error)
}

// Options tunes a [Synchronizer].
type Options struct {
	DryRun         bool             // read remote state but never create or append
	StopAfterStale int              // passed to the source as [services.FetchOptions.StopAfter] when a scope is set
	Visibility     string           // sharing of created collections, defaults to public
	Clock          func() time.Time // report timestamps, defaults to [time.Now]
}

// Synchronizer implements [SyncEngine] over a [services.StreamSource] and a [services.CollectionStore].
type Synchronizer struct {
	source services.StreamSource
	store  services.CollectionStore
	opts   Options
}

// NewSynchronizer creates a Synchronizer. A [services.Service] can be passed as both source and store.
func NewSynchronizer(source services.StreamSource, store services.CollectionStore, opts Options) *Synchronizer {
	if opts.Visibility == "" {
		opts.Visibility = services.Public
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Synchronizer{source: source, store: store, opts: opts}
}

type bucket struct {
	key   models.MonthKey
	items []models.Item
}

// Run performs one synchronization.
//
// An invalid scope is returned before any remote call. A fetch failure wraps [shared.ErrFetchFailed]
// and nothing is mutated. Lookup, create and append failures are recorded in the report and never
// returned. Cancelling ctx stops the run and returns the partial report with the context error.
func (s *Synchronizer) Run(ctx context.Context, filters models.Filters, now time.Time) (*models.RunReport, error) {
	var interval *models.DateInterval
	if filters.Scope != "" {
		resolved, err := scope.Resolve(filters.Scope, now)
		if err != nil {
			return nil, err
		}
		interval = &resolved
	}

	if s.source == nil || s.store == nil {
		return nil, fmt.Errorf("%w: stream source and collection store are required", shared.ErrServiceUnavailable)
	}

	report := models.NewRunReport(shared.GenerateID(), filters, s.opts.Clock())
	report.Interval = interval
	report.DryRun = s.opts.DryRun

	fetch := services.FetchOptions{}
	if interval != nil && s.opts.StopAfterStale > 0 {
		fetch.Since = interval.Start
		fetch.StopAfter = s.opts.StopAfterStale
	}

	items, err := s.source.FetchAll(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrFetchFailed, err)
	}
	report.ItemsFetched = len(items)

	accepted := make([]models.Item, 0, len(items))
	for _, item := range items {
		if Accept(item, filters.Length, interval) {
			accepted = append(accepted, item)
		}
	}
	report.ItemsAccepted = len(accepted)

	for _, b := range groupByMonth(accepted) {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = s.opts.Clock().UTC()
			return report, err
		}
		if err := s.reconcile(ctx, report, b); err != nil {
			report.FinishedAt = s.opts.Clock().UTC()
			return report, err
		}
	}

	report.FinishedAt = s.opts.Clock().UTC()
	return report, nil
}

// groupByMonth buckets items by [models.MonthKey], oldest month first and oldest item first within a month.
func groupByMonth(items []models.Item) []bucket {
	index := make(map[models.MonthKey]int)
	var buckets []bucket

	for _, item := range items {
		key := item.Month()
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{key: key})
		}
		buckets[i].items = append(buckets[i].items, item)
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].key.Before(buckets[j].key) })
	for _, b := range buckets {
		sort.SliceStable(b.items, func(i, j int) bool { return b.items[i].CreatedAt.Before(b.items[j].CreatedAt) })
	}
	return buckets
}

// reconcile brings one month's collection up to date. Only context errors are returned.
func (s *Synchronizer) reconcile(ctx context.Context, report *models.RunReport, b bucket) error {
	name := b.key.String()
	summary := models.BucketReport{Name: name, Items: len(b.items)}
	defer func() { report.Buckets = append(report.Buckets, summary) }()

	failBucket := func(op string, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		summary.Failed = true
		report.Fail(name, "", op, fmt.Errorf("%w: %v", shared.ErrCollectionMutation, err))
		return nil
	}

	collection, err := s.store.FindByName(ctx, name)
	if err != nil {
		return failBucket(models.OpLookup, err)
	}

	members := make(map[string]struct{})
	switch {
	case collection == nil && s.opts.DryRun:
		summary.Created = true
		report.CollectionsCreated++
	case collection == nil:
		collection, err = s.store.Create(ctx, name, s.opts.Visibility)
		if err != nil {
			return failBucket(models.OpCreate, err)
		}
		summary.Created = true
		report.CollectionsCreated++
	default:
		members, err = s.store.Members(ctx, collection)
		if err != nil {
			return failBucket(models.OpMembers, err)
		}
		if members == nil {
			members = make(map[string]struct{})
		}
	}

	for _, item := range b.items {
		if _, ok := members[item.ID]; ok {
			summary.DuplicatesSkipped++
			report.DuplicatesSkipped++
			continue
		}

		if !s.opts.DryRun {
			if err := s.store.Append(ctx, collection, item.ID); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				report.Fail(name, item.ID, models.OpAppend, fmt.Errorf("%w: %v", shared.ErrCollectionMutation, err))
				continue
			}
		}

		members[item.ID] = struct{}{}
		summary.MembershipsAdded++
		summary.Added = append(summary.Added, item.Title)
		report.MembershipsAdded++
	}

	return nil
}
