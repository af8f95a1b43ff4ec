// Package queue implements the submission queue protocol (spec §4.2): one
// Redis list per contest, keyed "contest:submissions:{contest_id}", plus the
// advisory grading list and the session-coherence keys the auth package
// needs. It talks to Redis directly with github.com/redis/go-redis/v9 rather
// than through a task-queue abstraction, because the protocol the spec
// requires — a per-contest list, atomic blocking pop, cursor-based SCAN over
// a key pattern, and a single-round-trip pipeline — is a raw KV list
// contract, not a task queue.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}

const (
	submissionQueuePrefix = "contest:submissions:"
	submissionQueuePattern = submissionQueuePrefix + "*"
	gradingQueueKey       = "contest:grading"
	activeSessionPrefix   = "active_session:"
	forceLogoutPrefix     = "force_logout:"
)

// SubmissionItem is one answered question within a batch.
type SubmissionItem struct {
	QuestionID string   `json:"question_id"`
	UserAnswer []string `json:"user_answer"`
	TimeTaken  int       `json:"time_taken"`
	HintUsed   bool      `json:"hint_used,omitempty"`
}

// SubmissionBatch is one queue item: all of a user's submissions in one
// contest in one message (spec §3 "Submission queue entry").
type SubmissionBatch struct {
	ContestID   string           `json:"contest_id"`
	UserID      string           `json:"user_id"`
	Submissions []SubmissionItem `json:"submissions"`
}

// Queue wraps a Redis client with the submission queue protocol's primitives.
type Queue struct {
	rdb *redis.Client
}

// New creates a Queue from the REDIS_ADDR/REDIS_PASSWORD environment
// variables, matching the teacher's NewQueueManager defaults.
func New() (*Queue, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	return &Queue{rdb: rdb}, nil
}

// NewWithClient wraps an already-constructed client; used by tests against a
// miniredis-backed client and by callers that need a shared connection pool.
func NewWithClient(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Close releases the underlying Redis connection.
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// SubmissionQueueKey returns the list key for a contest's submission queue.
func SubmissionQueueKey(contestID string) string {
	return submissionQueuePrefix + contestID
}

// ContestIDFromQueueKey extracts the contest id suffix from a submission
// queue key.
func ContestIDFromQueueKey(key string) string {
	if len(key) <= len(submissionQueuePrefix) {
		return ""
	}
	return key[len(submissionQueuePrefix):]
}

// Enqueue pushes a user-grouped submission batch onto its contest's list. A
// single push carries all submissions by one user for one contest in one
// batch (spec §4.2 producer contract).
func (q *Queue) Enqueue(ctx context.Context, batch SubmissionBatch) error {
	tracer := otel.Tracer("contest-queue")
	ctx, span := tracer.Start(ctx, "queue.enqueue_submission")
	defer span.End()

	span.SetAttributes(
		attribute.String("submission.contest_id", batch.ContestID),
		attribute.String("submission.user_id", batch.UserID),
		attribute.Int("submission.count", len(batch.Submissions)),
	)

	payload, err := json.Marshal(batch)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("marshal submission batch: %w", err)
	}

	key := SubmissionQueueKey(batch.ContestID)
	if err := q.rdb.LPush(ctx, key, payload).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

// DequeueBlocking performs an atomic blocking right-pop against queueKey.
// Returns (nil, nil) on timeout with no item available. BRPOP is the sole
// concurrency primitive the protocol relies on: each enqueued item is
// delivered to exactly one caller.
func (q *Queue) DequeueBlocking(ctx context.Context, queueKey string, timeoutSeconds int) (*SubmissionBatch, error) {
	result, err := q.rdb.BRPop(ctx, secondsToDuration(timeoutSeconds), queueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("brpop %s: %w", queueKey, err)
	}

	// BRPop returns [key, value].
	if len(result) != 2 {
		return nil, fmt.Errorf("brpop %s: unexpected result shape", queueKey)
	}

	var batch SubmissionBatch
	if err := json.Unmarshal([]byte(result[1]), &batch); err != nil {
		return nil, fmt.Errorf("unmarshal submission batch from %s: %w", queueKey, err)
	}
	return &batch, nil
}

// QueueLength returns the list length for a key (0 if it does not exist).
func (q *Queue) QueueLength(ctx context.Context, key string) (int64, error) {
	n, err := q.rdb.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

// DiscoverActiveQueues enumerates all contest:submissions:* keys via
// cursor-based SCAN (never a blocking wildcard lookup) and returns the ones
// with non-zero length.
func (q *Queue) DiscoverActiveQueues(ctx context.Context) ([]string, error) {
	active, _, err := q.scanSubmissionQueues(ctx, true)
	return active, err
}

// AllSubmissionQueues enumerates every contest:submissions:* key regardless
// of length — queues are never deleted when they drain, so this is how the
// grading worker recovers the full set of contests that ever had a queue.
func (q *Queue) AllSubmissionQueues(ctx context.Context) ([]string, error) {
	_, all, err := q.scanSubmissionQueues(ctx, false)
	return all, err
}

func (q *Queue) scanSubmissionQueues(ctx context.Context, onlyNonEmpty bool) (active []string, all []string, err error) {
	var cursor uint64
	seen := make(map[string]struct{})
	for {
		keys, next, scanErr := q.rdb.Scan(ctx, cursor, submissionQueuePattern, 100).Result()
		if scanErr != nil {
			return nil, nil, fmt.Errorf("scan %s: %w", submissionQueuePattern, scanErr)
		}
		for _, key := range keys {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, key)

			if onlyNonEmpty {
				length, lenErr := q.QueueLength(ctx, key)
				if lenErr != nil {
					return nil, nil, lenErr
				}
				if length > 0 {
					active = append(active, key)
				}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return active, all, nil
}

// PushGrading emits a contest id onto the advisory grading list (spec §4.5).
func (q *Queue) PushGrading(ctx context.Context, contestID string) error {
	if err := q.rdb.LPush(ctx, gradingQueueKey, contestID).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", gradingQueueKey, err)
	}
	return nil
}

// SessionPipelineResult is the outcome of the single-round-trip pipeline the
// session authorizer issues on every request.
type SessionPipelineResult struct {
	ForceLogoutExists bool
	ActiveSessionID   string // empty if the key is absent
}

// CheckSession issues EXISTS force_logout:{sessionID} and GET
// active_session:{userID} in one pipeline (spec §4.10 step 3).
func (q *Queue) CheckSession(ctx context.Context, userID, sessionID string) (SessionPipelineResult, error) {
	pipe := q.rdb.Pipeline()
	existsCmd := pipe.Exists(ctx, forceLogoutPrefix+sessionID)
	getCmd := pipe.Get(ctx, activeSessionPrefix+userID)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return SessionPipelineResult{}, fmt.Errorf("session pipeline: %w", err)
	}

	active, err := getCmd.Result()
	if err == redis.Nil {
		active = ""
	} else if err != nil {
		return SessionPipelineResult{}, fmt.Errorf("get active_session: %w", err)
	}

	return SessionPipelineResult{
		ForceLogoutExists: existsCmd.Val() > 0,
		ActiveSessionID:   active,
	}, nil
}

// DeleteForceLogout removes the force-logout marker for a session, as the
// session authorizer does the first time it observes one.
func (q *Queue) DeleteForceLogout(ctx context.Context, sessionID string) error {
	return q.rdb.Del(ctx, forceLogoutPrefix+sessionID).Err()
}

// SetForceLogout marks a superseded session for logout with a short TTL.
func (q *Queue) SetForceLogout(ctx context.Context, sessionID string, ttlSeconds int) error {
	return q.rdb.Set(ctx, forceLogoutPrefix+sessionID, "true", secondsToDuration(ttlSeconds)).Err()
}

// SetActiveSession overwrites the active-session mirror for a user with the
// given TTL. Login passes the refresh-token lifetime; Logout writes an empty
// value with a 1-second TTL.
func (q *Queue) SetActiveSession(ctx context.Context, userID, sessionID string, ttlSeconds int) error {
	return q.rdb.Set(ctx, activeSessionPrefix+userID, sessionID, secondsToDuration(ttlSeconds)).Err()
}

// GetActiveSession reads the active-session mirror for a user ("" if absent).
func (q *Queue) GetActiveSession(ctx context.Context, userID string) (string, error) {
	val, err := q.rdb.Get(ctx, activeSessionPrefix+userID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active_session: %w", err)
	}
	return val, nil
}
