package contest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"examprep-contest-core/internal/queue"
	"examprep-contest-core/pkg/reqctx"
)

func withRouteParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	q := queue.NewWithClient(rdb)
	t.Cleanup(func() { q.Close() })

	return &Service{db: nil, q: q}
}

func TestSubmitEnqueuesBatchAndReturnsAccepted(t *testing.T) {
	s := newTestService(t)

	body := SubmitRequest{
		Submissions: []SubmitItem{
			{QuestionID: "q1", UserAnswer: []string{"42"}, TimeTaken: 12},
			{QuestionID: "q2", UserAnswer: []string{"b"}, TimeTaken: 8, HintUsed: true},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/contests/contest-1/submit", bytes.NewReader(payload))
	req = req.WithContext(reqctx.WithUserID(req.Context(), "user-1"))

	req = req.WithContext(withRouteParam(req.Context(), "id", "contest-1"))

	rec := httptest.NewRecorder()
	s.Submit(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("got status %d, want %d, body=%s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	length, err := s.q.QueueLength(req.Context(), queue.SubmissionQueueKey("contest-1"))
	if err != nil {
		t.Fatalf("query queue length: %v", err)
	}
	if length != 1 {
		t.Errorf("got queue length %d, want 1", length)
	}
}

func TestSubmitRejectsEmptyBody(t *testing.T) {
	s := newTestService(t)

	payload, _ := json.Marshal(SubmitRequest{Submissions: nil})
	req := httptest.NewRequest(http.MethodPost, "/contests/contest-1/submit", bytes.NewReader(payload))
	req = req.WithContext(reqctx.WithUserID(req.Context(), "user-1"))

	req = req.WithContext(withRouteParam(req.Context(), "id", "contest-1"))

	rec := httptest.NewRecorder()
	s.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitRequiresAuthenticatedUser(t *testing.T) {
	s := newTestService(t)

	payload, _ := json.Marshal(SubmitRequest{Submissions: []SubmitItem{{QuestionID: "q1"}}})
	req := httptest.NewRequest(http.MethodPost, "/contests/contest-1/submit", bytes.NewReader(payload))

	req = req.WithContext(withRouteParam(req.Context(), "id", "contest-1"))

	rec := httptest.NewRecorder()
	s.Submit(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
