package contest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"examprep-contest-core/internal/question"
	"examprep-contest-core/internal/queue"
	"examprep-contest-core/pkg/database"
	"examprep-contest-core/pkg/middleware"
)

// Service handles contest read/create operations and the submit endpoint.
type Service struct {
	db *database.DB
	q  *queue.Queue
}

// NewService creates a contest Service.
func NewService(db *database.DB, q *queue.Queue) *Service {
	return &Service{db: db, q: q}
}

// GetContest returns a contest and its question bag (answer fields
// stripped) by id.
func (s *Service) GetContest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contestID := chi.URLParam(r, "id")
	if contestID == "" {
		http.Error(w, "contest id is required", http.StatusBadRequest)
		return
	}

	detail, err := s.getContestDetail(ctx, contestID)
	if err != nil {
		if err == ErrContestNotFound {
			http.Error(w, "contest not found", http.StatusNotFound)
		} else {
			http.Error(w, "failed to fetch contest", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(detail)
}

// CreateContest creates a contest and links it to the given question bag.
func (s *Service) CreateContest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.QuestionIDs) == 0 {
		http.Error(w, ErrNoQuestions.Error(), http.StatusBadRequest)
		return
	}
	if !req.EndsAt.After(req.StartsAt) {
		http.Error(w, ErrInvalidContestTimes.Error(), http.StatusBadRequest)
		return
	}

	created, err := s.createContest(ctx, &req)
	if err != nil {
		http.Error(w, "failed to create contest", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// Submit enqueues the authenticated user's answer batch for grading and
// returns 202 Accepted; the actual grading happens asynchronously in the
// submission worker.
func (s *Service) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	contestID := chi.URLParam(r, "id")
	if contestID == "" {
		http.Error(w, "contest id is required", http.StatusBadRequest)
		return
	}

	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Submissions) == 0 {
		http.Error(w, "at least one submission is required", http.StatusBadRequest)
		return
	}

	items := make([]queue.SubmissionItem, 0, len(req.Submissions))
	for _, s := range req.Submissions {
		items = append(items, queue.SubmissionItem{
			QuestionID: s.QuestionID,
			UserAnswer: s.UserAnswer,
			TimeTaken:  s.TimeTaken,
			HintUsed:   s.HintUsed,
		})
	}

	batch := queue.SubmissionBatch{ContestID: contestID, UserID: userID, Submissions: items}
	if err := s.q.Enqueue(ctx, batch); err != nil {
		http.Error(w, "failed to enqueue submission", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) getContestDetail(ctx context.Context, contestID string) (*ContestDetail, error) {
	tracer := otel.Tracer("contest-service")
	ctx, span := tracer.Start(ctx, "contest.get_detail")
	defer span.End()

	var c Contest
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, title, total_time_seconds, status, starts_at, ends_at, created_at
		FROM contests WHERE id = $1
	`, contestID).Scan(&c.ID, &c.Title, &c.TotalTimeSeconds, &c.Status, &c.StartsAt, &c.EndsAt, &c.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, ErrContestNotFound
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT q.id, q.type, q.marks, q.mcq_options, q.scq_options
		FROM questions q
		JOIN contest_questions cq ON cq.question_id = q.id
		WHERE cq.contest_id = $1
	`, contestID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("contest: load questions: %w", err)
	}
	defer rows.Close()

	var questions []PublicQuestion
	for rows.Next() {
		var q PublicQuestion
		var qType string
		if err := rows.Scan(&q.ID, &qType, &q.Marks, &q.MCQOptions, &q.SCQOptions); err != nil {
			return nil, fmt.Errorf("contest: scan question: %w", err)
		}
		q.Type = question.Type(qType)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	c.Status = c.GetStatus()
	c.TotalQuestions = len(questions)
	return &ContestDetail{Contest: c, Questions: questions}, nil
}

func (s *Service) createContest(ctx context.Context, req *CreateContestRequest) (*Contest, error) {
	tracer := otel.Tracer("contest-service")
	ctx, span := tracer.Start(ctx, "contest.create")
	defer span.End()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("contest: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	c := Contest{
		ID:               uuid.NewString(),
		Title:            req.Title,
		TotalTimeSeconds: req.TotalTimeSeconds,
		Status:           "not_started",
		StartsAt:         req.StartsAt,
		EndsAt:           req.EndsAt,
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO contests (id, title, total_time_seconds, status, starts_at, ends_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`, c.ID, c.Title, c.TotalTimeSeconds, c.Status, c.StartsAt, c.EndsAt).Scan(&c.CreatedAt)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("contest: insert contest: %w", err)
	}

	for _, qID := range req.QuestionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO contest_questions (contest_id, question_id) VALUES ($1, $2)
		`, c.ID, qID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("contest: link question %s: %w", qID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("contest: commit tx: %w", err)
	}

	c.TotalQuestions = len(req.QuestionIDs)
	return &c, nil
}
