package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/observability"
	"sociable/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	placeholderTitle     = "Test Celery Posts Creation"
	placeholderTextFmt   = "New post from user: %s"
	maxTitleAttempts     = 50
	defaultPollTimeout   = 5 * time.Second
	defaultErrorBackoff  = time.Second
	outcomeProcessed     = "processed"
	outcomeFailed        = "failed"
	outcomeMalformedTask = "malformed"
)

// Worker consumes CreatePostQueue.
type Worker struct {
	rdb         *redis.Client
	posts       repository.PostRepository
	profiles    repository.ProfileRepository
	pollTimeout time.Duration
	backoff     time.Duration
}

func NewWorker(rdb *redis.Client, posts repository.PostRepository, profiles repository.ProfileRepository) *Worker {
	return &Worker{
		rdb:         rdb,
		posts:       posts,
		profiles:    profiles,
		pollTimeout: defaultPollTimeout,
		backoff:     defaultErrorBackoff,
	}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.rdb == nil {
		return ErrQueueUnavailable
	}
	middleware.Logger.Info("task worker started", "queue", CreatePostQueue)
	for {
		if ctx.Err() != nil {
			middleware.Logger.Info("task worker stopped", "queue", CreatePostQueue)
			return nil
		}
		if _, err := w.ProcessNext(ctx); err != nil && ctx.Err() == nil {
			middleware.Logger.Error("task worker poll failed", "queue", CreatePostQueue, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.backoff):
			}
		}
	}
}

// ProcessNext waits up to the poll timeout for one task and handles it. It
// reports whether a task was taken off the queue. Task failures are logged
// and counted, not returned; only queue errors are.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	res, err := w.rdb.BRPop(ctx, w.pollTimeout, CreatePostQueue).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return false, fmt.Errorf("unexpected BRPOP reply: %v", res)
	}

	var task CreatePostTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		observability.TasksProcessed.WithLabelValues(CreatePostQueue, outcomeMalformedTask).Inc()
		middleware.Logger.Warn("dropping malformed task", "queue", CreatePostQueue, "error", err)
		return true, nil
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				observability.TasksProcessed.WithLabelValues(CreatePostQueue, outcomeFailed).Inc()
				middleware.Logger.Error("panic in task handler",
					"task_id", task.ID, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		if _, err := w.CreatePlaceholderPost(ctx, task); err != nil {
			observability.TasksProcessed.WithLabelValues(CreatePostQueue, outcomeFailed).Inc()
			middleware.Logger.Error("task failed", "task_id", task.ID, "user_id", task.UserID, "error", err)
			return
		}
		observability.TasksProcessed.WithLabelValues(CreatePostQueue, outcomeProcessed).Inc()
	}()
	return true, nil
}

// CreatePlaceholderPost publishes the placeholder post for task.UserID under
// the first free placeholder title.
func (w *Worker) CreatePlaceholderPost(ctx context.Context, task CreatePostTask) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "tasks", "create_placeholder_post",
		attribute.String("task.id", task.ID), attribute.Int64("user.id", int64(task.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	profile, err := w.profiles.GetByUserID(ctx, task.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, models.NewValidationError("Create a profile before posting")
	}

	for attempt := 1; attempt <= maxTitleAttempts; attempt++ {
		title := placeholderTitleFor(attempt)
		taken, err := w.posts.TitleExists(ctx, title)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		post = &models.Post{
			UserID: task.UserID,
			Title:  title,
			Text:   fmt.Sprintf(placeholderTextFmt, profile.Username),
		}
		if err := w.posts.Create(ctx, post, nil); err != nil {
			// Lost a race for this title against another writer.
			if models.ErrorCode(err) == models.CodeConflict {
				continue
			}
			return nil, err
		}

		total, err := w.posts.Count(ctx)
		if err != nil {
			return nil, err
		}
		middleware.Logger.InfoContext(ctx, "placeholder post created",
			"task_id", task.ID, "post_id", post.ID, "posts_total", total)
		return post, nil
	}
	return nil, models.NewConflictError("No free placeholder title")
}

// placeholderTitleFor returns the base title for attempt 1 and "<base> #n"
// afterwards, cut to fit the title column.
func placeholderTitleFor(attempt int) string {
	if attempt <= 1 {
		return placeholderTitle
	}
	suffix := fmt.Sprintf(" #%d", attempt)
	base := placeholderTitle
	for utf8.RuneCountInString(base)+len(suffix) > models.MaxPostTitleLength {
		_, size := utf8.DecodeLastRuneInString(base)
		base = base[:len(base)-size]
	}
	return base + suffix
}
