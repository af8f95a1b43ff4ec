package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewWithClient(rdb)
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	batch := SubmissionBatch{
		ContestID: "c1",
		UserID:    "u1",
		Submissions: []SubmissionItem{
			{QuestionID: "q1", UserAnswer: []string{"5"}, TimeTaken: 30},
		},
	}
	if err := q.Enqueue(ctx, batch); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := q.DequeueBlocking(ctx, SubmissionQueueKey("c1"), 1)
	if err != nil {
		t.Fatalf("DequeueBlocking: %v", err)
	}
	if got == nil {
		t.Fatal("expected a batch, got nil")
	}
	if got.ContestID != "c1" || got.UserID != "u1" || len(got.Submissions) != 1 {
		t.Errorf("unexpected batch: %+v", got)
	}
}

func TestDequeueBlockingTimeoutReturnsNil(t *testing.T) {
	q := newTestQueue(t)
	got, err := q.DequeueBlocking(context.Background(), SubmissionQueueKey("empty"), 1)
	if err != nil {
		t.Fatalf("DequeueBlocking: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil batch on timeout, got %+v", got)
	}
}

func TestDiscoverActiveQueuesFiltersEmpty(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.Enqueue(ctx, SubmissionBatch{ContestID: "active", UserID: "u1"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// Create an empty queue entry that then drains, to make sure a
	// zero-length list is excluded from DiscoverActiveQueues.
	if err := q.Enqueue(ctx, SubmissionBatch{ContestID: "drained", UserID: "u2"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.DequeueBlocking(ctx, SubmissionQueueKey("drained"), 1); err != nil {
		t.Fatalf("DequeueBlocking: %v", err)
	}

	active, err := q.DiscoverActiveQueues(ctx)
	if err != nil {
		t.Fatalf("DiscoverActiveQueues: %v", err)
	}
	if len(active) != 1 || active[0] != SubmissionQueueKey("active") {
		t.Errorf("got %v, want only the active queue", active)
	}

	all, err := q.AllSubmissionQueues(ctx)
	if err != nil {
		t.Fatalf("AllSubmissionQueues: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %v, want both queues (active and drained)", all)
	}
}

func TestPushGrading(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if err := q.PushGrading(ctx, "c1"); err != nil {
		t.Fatalf("PushGrading: %v", err)
	}
	n, err := q.QueueLength(ctx, gradingQueueKey)
	if err != nil {
		t.Fatalf("QueueLength: %v", err)
	}
	if n != 1 {
		t.Errorf("got grading queue length %d, want 1", n)
	}
}

func TestCheckSessionNoForceLogoutNoActiveSession(t *testing.T) {
	q := newTestQueue(t)
	result, err := q.CheckSession(context.Background(), "u1", "s1")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if result.ForceLogoutExists || result.ActiveSessionID != "" {
		t.Errorf("got %+v, want zero value", result)
	}
}

func TestCheckSessionDetectsForceLogoutAndMismatch(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	if err := q.SetForceLogout(ctx, "s-old", 300); err != nil {
		t.Fatalf("SetForceLogout: %v", err)
	}
	if err := q.SetActiveSession(ctx, "u1", "s-new", 3600); err != nil {
		t.Fatalf("SetActiveSession: %v", err)
	}

	result, err := q.CheckSession(ctx, "u1", "s-old")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if !result.ForceLogoutExists {
		t.Error("expected force logout marker to be detected")
	}
	if result.ActiveSessionID != "s-new" {
		t.Errorf("got active session %q, want s-new", result.ActiveSessionID)
	}

	if err := q.DeleteForceLogout(ctx, "s-old"); err != nil {
		t.Fatalf("DeleteForceLogout: %v", err)
	}
	result, err = q.CheckSession(ctx, "u1", "s-old")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if result.ForceLogoutExists {
		t.Error("expected force logout marker to be cleared")
	}
}

func TestSessionTTLIsApplied(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	if err := q.SetForceLogout(ctx, "s1", 1); err != nil {
		t.Fatalf("SetForceLogout: %v", err)
	}
	// The TTL is applied at write time; expiry itself is not exercised here.
	ttl, err := q.rdb.TTL(ctx, forceLogoutPrefix+"s1").Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Second {
		t.Errorf("got TTL %v, want a positive TTL of at most 1s", ttl)
	}
	result, err := q.CheckSession(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("CheckSession: %v", err)
	}
	if !result.ForceLogoutExists {
		t.Error("expected marker to exist immediately after being set")
	}
}
