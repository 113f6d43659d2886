// Package tasks runs background jobs over Redis lists.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CreatePostQueue holds pending placeholder-post tasks.
const CreatePostQueue = "tasks:create_post"

// ErrQueueUnavailable is returned when no Redis client is configured.
var ErrQueueUnavailable = errors.New("task queue unavailable")

// CreatePostTask asks the worker to publish a placeholder post for UserID.
type CreatePostTask struct {
	ID     string `json:"id"`
	UserID uint   `json:"user_id"`
}

// Queue pushes tasks onto Redis lists. Workers pop from the other end.
type Queue struct {
	rdb *redis.Client
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// EnqueueCreatePost schedules a placeholder post and returns the task id.
func (q *Queue) EnqueueCreatePost(ctx context.Context, userID uint) (string, error) {
	if q == nil || q.rdb == nil {
		return "", ErrQueueUnavailable
	}
	task := CreatePostTask{ID: uuid.NewString(), UserID: userID}
	payload, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, CreatePostQueue, payload).Err(); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", CreatePostQueue, err)
	}
	return task.ID, nil
}
