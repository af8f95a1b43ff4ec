// Package leaderboard implements the leaderboard aggregator (spec §4.4): it
// grades one submission batch inside a caller-supplied Postgres
// transaction, writing attempts and upserting the contest standings row for
// the batch's user.
package leaderboard

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"examprep-contest-core/internal/evaluator"
	"examprep-contest-core/internal/queue"
	"examprep-contest-core/internal/question"
)

// Result summarizes one processed batch, for worker-level logging and
// metrics.
type Result struct {
	ContestID      string
	UserID         string
	ProcessedCount int
	FailedCount    int
	TotalScore     int
	Attempted      int
	Correct        int
	Incorrect      int
	TotalTime      int
}

// ErrContestNotFound means the batch names a contest with no matching row;
// the caller abandons the batch (spec §4.4 step 1).
var ErrContestNotFound = fmt.Errorf("leaderboard: contest not found")

// ProcessBatch implements spec §4.4 steps 1-6 against one batch, inside tx.
// It never commits or rolls back tx; that is the caller's responsibility so
// the worker can decide batch-level success/failure as a unit.
func ProcessBatch(ctx context.Context, tx pgx.Tx, batch queue.SubmissionBatch) (*Result, error) {
	totalQuestions, err := loadTotalQuestions(ctx, tx, batch.ContestID)
	if err != nil {
		return nil, err
	}

	questions, err := loadQuestions(ctx, tx, submittedQuestionIDs(batch))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: load questions: %w", err)
	}

	result := &Result{ContestID: batch.ContestID, UserID: batch.UserID}

	for _, item := range batch.Submissions {
		q, ok := questions[item.QuestionID]
		if !ok {
			result.FailedCount++
			log.Printf("leaderboard: question %s not found for contest %s, skipping", item.QuestionID, batch.ContestID)
			continue
		}

		isCorrect, marks := evaluator.Evaluate(q, item.UserAnswer)

		if _, err := tx.Exec(ctx, `
			INSERT INTO attempts
				(id, user_id, question_id, user_answer, is_correct, marks_obtained, time_taken, hint_used, attempted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		`, uuid.NewString(), batch.UserID, item.QuestionID, item.UserAnswer, isCorrect, marks, item.TimeTaken, item.HintUsed); err != nil {
			return nil, fmt.Errorf("leaderboard: insert attempt: %w", err)
		}

		result.ProcessedCount++
		result.TotalScore += marks
		result.Attempted++
		result.TotalTime += item.TimeTaken
		if isCorrect {
			result.Correct++
		} else {
			result.Incorrect++
		}
	}

	if result.ProcessedCount == 0 {
		return result, nil
	}

	unattempted := totalQuestions - result.Attempted
	if unattempted < 0 {
		unattempted = 0
	}
	accuracy := computeAccuracy(result.Correct, result.Attempted)

	if err := upsertLeaderboardRow(ctx, tx, batch.ContestID, batch.UserID, totalQuestions, unattempted, accuracy, result); err != nil {
		return nil, err
	}

	return result, nil
}

func loadTotalQuestions(ctx context.Context, tx pgx.Tx, contestID string) (int, error) {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contests WHERE id = $1)`, contestID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("leaderboard: check contest existence: %w", err)
	}
	if !exists {
		return 0, ErrContestNotFound
	}

	var total int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM contest_questions WHERE contest_id = $1`, contestID).Scan(&total); err != nil {
		return 0, fmt.Errorf("leaderboard: count contest questions: %w", err)
	}
	return total, nil
}

// computeAccuracy implements spec §4.4's "correct / attempted * 100, else 0".
func computeAccuracy(correct, attempted int) float64 {
	if attempted == 0 {
		return 0.0
	}
	return float64(correct) / float64(attempted) * 100
}

func submittedQuestionIDs(batch queue.SubmissionBatch) []string {
	ids := make([]string, 0, len(batch.Submissions))
	for _, item := range batch.Submissions {
		ids = append(ids, item.QuestionID)
	}
	return ids
}

func loadQuestions(ctx context.Context, tx pgx.Tx, ids []string) (map[string]question.Question, error) {
	out := make(map[string]question.Question, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, type, marks, integer_answer, mcq_options, mcq_correct_option, scq_options, scq_correct_options
		FROM questions
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q question.Question
		var qType string
		if err := rows.Scan(&q.ID, &qType, &q.Marks, &q.IntegerAnswer, &q.MCQOptions, &q.MCQCorrectOption, &q.SCQOptions, &q.SCQCorrectOptions); err != nil {
			return nil, err
		}
		q.Type = question.Type(qType)
		out[q.ID] = q
	}
	return out, rows.Err()
}

func upsertLeaderboardRow(ctx context.Context, tx pgx.Tx, contestID, userID string, totalQuestions, unattempted int, accuracy float64, r *Result) error {
	var ratingBefore int
	if err := tx.QueryRow(ctx, `SELECT current_rating FROM users WHERE id = $1`, userID).Scan(&ratingBefore); err != nil {
		return fmt.Errorf("leaderboard: load user rating: %w", err)
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO leaderboard_rows
			(id, user_id, contest_id, score, total_questions, attempted, unattempted, correct, incorrect,
			 total_time, accuracy, rating_before, rating_after, rating_delta, rank, missed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12, 0, 0, false)
		ON CONFLICT (user_id, contest_id) DO UPDATE SET
			score = EXCLUDED.score,
			total_questions = EXCLUDED.total_questions,
			attempted = EXCLUDED.attempted,
			unattempted = EXCLUDED.unattempted,
			correct = EXCLUDED.correct,
			incorrect = EXCLUDED.incorrect,
			total_time = EXCLUDED.total_time,
			accuracy = EXCLUDED.accuracy,
			rating_before = EXCLUDED.rating_before,
			rating_after = EXCLUDED.rating_before,
			rating_delta = 0
	`, uuid.NewString(), userID, contestID, r.TotalScore, totalQuestions, r.Attempted, unattempted,
		r.Correct, r.Incorrect, r.TotalTime, accuracy, ratingBefore)
	if err != nil {
		return fmt.Errorf("leaderboard: upsert row: %w", err)
	}
	return nil
}
