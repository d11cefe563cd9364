// Package collect runs one paginated, resumable review collection for an app.
//
// A run fetches pages strictly in sequence, scores and upserts every item,
// reports progress after each page and stops on the first of: target reached,
// feed exhausted, duplicate saturation, a short page once enough new reviews
// were gathered, or the page ceiling.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cognicore/reviewscope/pkg/reviewscope/internalerr"
	"github.com/cognicore/reviewscope/pkg/reviewscope/sentiment"
	"github.com/cognicore/reviewscope/pkg/reviewscope/source"
	"github.com/cognicore/reviewscope/pkg/reviewscope/store"
	"github.com/cognicore/reviewscope/pkg/reviewscope/tracker"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopTarget    StopReason = "target_reached"
	StopExhausted StopReason = "source_exhausted"
	StopSaturated StopReason = "duplicate_saturation"
	StopShortPage StopReason = "short_page"
	StopPageLimit StopReason = "page_limit"
	StopError     StopReason = "error"
	StopCanceled  StopReason = "canceled"
)

// Task types.
const (
	TaskQuick = "quick"
	TaskFull  = "full"
)

// Options tunes a Collector.
type Options struct {
	PageSize int
	MaxPages int
	Retry    RetryPolicy
	Logger   *slog.Logger
	// Sleep replaces the backoff wait, for tests.
	Sleep SleepFunc
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		PageSize: 200,
		MaxPages: 50,
		Retry:    DefaultRetryPolicy(),
	}
}

// Request describes one run.
type Request struct {
	AppID    string
	AppName  string
	Actor    string
	Target   int
	TaskType string
}

// Summary is the outcome of a run. Counts are kept on failure.
type Summary struct {
	TaskID     string
	New        int
	Duplicates int
	Pages      int
	Status     store.TaskStatus
	StopReason StopReason
	Err        error
}

// Processed is New + Duplicates.
func (s Summary) Processed() int { return s.New + s.Duplicates }

// Collector drives a source into the review store.
type Collector struct {
	src       source.Source
	reviews   store.ReviewStore
	tracker   *tracker.Tracker
	annotator *sentiment.Annotator
	opts      Options
	logger    *slog.Logger
}

// New wires a collector. Zero option fields take their defaults.
func New(src source.Source, reviews store.ReviewStore, tr *tracker.Tracker, annotator *sentiment.Annotator, opts Options) *Collector {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = def.MaxPages
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = def.Retry
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if annotator == nil {
		annotator = sentiment.NewAnnotator(nil, opts.Logger)
	}
	return &Collector{
		src:       src,
		reviews:   reviews,
		tracker:   tr,
		annotator: annotator,
		opts:      opts,
		logger:    opts.Logger.With("source", src.Name()),
	}
}

// Collect performs one run and records it as a task. The returned error is
// also in Summary.Err. A request without an actor fails with
// internalerr.ErrIdentity before any task is created or page fetched.
func (c *Collector) Collect(ctx context.Context, req Request) (Summary, error) {
	if strings.TrimSpace(req.Actor) == "" {
		err := fmt.Errorf("collect %s: %w", req.AppID, internalerr.ErrIdentity)
		return Summary{Status: store.StatusFailure, StopReason: StopError, Err: err}, err
	}
	if req.AppID == "" || req.Target <= 0 {
		err := fmt.Errorf("collect: app id and positive target required: %w", internalerr.ErrInvalidInput)
		return Summary{Status: store.StatusFailure, StopReason: StopError, Err: err}, err
	}
	if req.TaskType == "" {
		req.TaskType = TaskFull
	}

	task, err := c.tracker.Create(ctx, tracker.NewTask{
		AppID:    req.AppID,
		AppName:  req.AppName,
		Actor:    req.Actor,
		TaskType: req.TaskType,
		Target:   req.Target,
	})
	if err != nil {
		return Summary{Status: store.StatusFailure, StopReason: StopError, Err: err}, err
	}
	if _, err := c.tracker.Start(ctx, task.ID); err != nil {
		return c.finish(ctx, Summary{TaskID: task.ID}, err)
	}

	log := c.logger.With("task_id", task.ID, "app_id", req.AppID)
	log.Info("collection started", "target", req.Target, "type", req.TaskType)

	sum := Summary{TaskID: task.ID}
	var token string
	for {
		if sum.Pages >= c.opts.MaxPages {
			sum.StopReason = StopPageLimit
			break
		}

		requested := min(c.opts.PageSize, req.Target-sum.Processed())
		page, err := c.fetchWithRetry(ctx, source.PageRequest{
			AppID: req.AppID,
			Sort:  source.SortNewest,
			Count: requested,
			Token: token,
		})
		if err != nil {
			return c.finish(ctx, sum, fmt.Errorf("page %d: %w", sum.Pages+1, err))
		}
		sum.Pages++

		if len(page.Items) == 0 {
			sum.StopReason = StopExhausted
			break
		}

		pageNew := 0
		for _, item := range page.Items {
			if sum.Processed() >= req.Target {
				break
			}
			if item.ID == "" {
				log.Warn("skipping review without id", "page", sum.Pages)
				continue
			}
			review, err := c.toReview(ctx, req.AppID, item)
			if err != nil {
				return c.finish(ctx, sum, fmt.Errorf("score review %s: %w", item.ID, err))
			}
			created, err := c.reviews.UpsertReview(ctx, review)
			if err != nil {
				return c.finish(ctx, sum, fmt.Errorf("store review %s: %w", item.ID, err))
			}
			if created {
				sum.New++
				pageNew++
			} else {
				sum.Duplicates++
			}
		}

		if _, err := c.tracker.Progress(ctx, task.ID, sum.Processed(), req.Target, store.StatusProgress); err != nil {
			return c.finish(ctx, sum, err)
		}
		log.Debug("page processed", "page", sum.Pages, "items", len(page.Items),
			"new", pageNew, "total_new", sum.New, "duplicates", sum.Duplicates)

		if reason, stop := c.shouldStop(req.Target, sum, page, requested, pageNew); stop {
			sum.StopReason = reason
			break
		}
		token = page.NextToken
	}

	return c.finish(ctx, sum, nil)
}

// shouldStop applies the per-page stop rules in order.
func (c *Collector) shouldStop(target int, sum Summary, page source.Page, requested, pageNew int) (StopReason, bool) {
	if sum.Processed() >= target {
		return StopTarget, true
	}
	if page.NextToken == "" {
		return StopExhausted, true
	}
	if sum.Pages > 3 && pageNew == 0 && float64(sum.New) >= saturationFloor(target) {
		return StopSaturated, true
	}
	if len(page.Items) < requested && float64(sum.New) >= shortPageFloor(target) {
		return StopShortPage, true
	}
	return "", false
}

// saturationFloor is the new-review count after which a page of pure
// duplicates ends the run.
func saturationFloor(target int) float64 {
	if target <= 300 {
		return 0.8 * float64(target)
	}
	return float64(target - 100)
}

// shortPageFloor is the new-review count after which a short page ends the run.
func shortPageFloor(target int) float64 {
	if target <= 300 {
		return 0.75 * float64(target)
	}
	return float64(target - 100)
}

func (c *Collector) toReview(ctx context.Context, appID string, item source.Item) (store.Review, error) {
	score, err := c.annotator.Score(ctx, item.Text, item.Rating)
	if err != nil {
		return store.Review{}, err
	}
	return store.Review{
		ReviewID:          item.ID,
		Source:            c.src.Name(),
		AppID:             appID,
		Author:            item.Author,
		Rating:            item.Rating,
		Title:             item.Title,
		Content:           item.Text,
		Sentiment:         &score,
		CountsTowardScore: true,
		CreatedAt:         item.At,
	}, nil
}

// finish records the terminal task state. Tracker writes survive a canceled
// ctx so a shutdown still leaves a revoked task behind.
func (c *Collector) finish(ctx context.Context, sum Summary, runErr error) (Summary, error) {
	wctx := context.WithoutCancel(ctx)
	log := c.logger.With("task_id", sum.TaskID)

	switch {
	case runErr == nil:
		msg := fmt.Sprintf("collected %d new reviews (%d duplicates) in %d pages: %s",
			sum.New, sum.Duplicates, sum.Pages, sum.StopReason)
		sum.Status = store.StatusSuccess
		if _, err := c.tracker.Succeed(wctx, sum.TaskID, msg); err != nil {
			sum.Err = err
			return sum, err
		}
		log.Info("collection finished", "new", sum.New, "duplicates", sum.Duplicates,
			"pages", sum.Pages, "reason", sum.StopReason)
		return sum, nil

	case ctx.Err() != nil || errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		sum.Status = store.StatusRevoked
		sum.StopReason = StopCanceled
		sum.Err = runErr
		if _, err := c.tracker.Revoke(wctx, sum.TaskID, "canceled: "+runErr.Error()); err != nil {
			log.Error("revoke task", "err", err)
		}
		log.Warn("collection canceled", "new", sum.New, "pages", sum.Pages)
		return sum, runErr

	default:
		sum.Status = store.StatusFailure
		sum.StopReason = StopError
		sum.Err = runErr
		if _, err := c.tracker.Fail(wctx, sum.TaskID, runErr); err != nil {
			log.Error("fail task", "err", err)
		}
		log.Error("collection failed", "new", sum.New, "pages", sum.Pages, "err", runErr)
		return sum, runErr
	}
}
