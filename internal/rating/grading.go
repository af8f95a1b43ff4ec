package rating

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoParticipants means the contest has no leaderboard rows yet; grading
// is a no-op rather than an error (a contest can go quiet before anyone
// submits).
var ErrNoParticipants = fmt.Errorf("rating: contest has no leaderboard rows")

// GradeContest applies spec §4.7-4.9 to one contest inside tx: assign
// ranks by score, compute rating updates for every participant, persist
// rank/rating_after/rating_delta on the leaderboard rows (rating_before is
// read, never written), and update each user's current_rating/max_rating/title. Idempotent: running
// it twice against unchanged rows produces identical outputs. Returns the
// computed outcomes so callers can report per-user rating deltas.
func GradeContest(ctx context.Context, tx pgx.Tx, contestID string) ([]Outcome, error) {
	rows, err := tx.Query(ctx, `
		SELECT user_id, score, rating_before
		FROM leaderboard_rows
		WHERE contest_id = $1
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("rating: load leaderboard rows: %w", err)
	}

	var standings []Standing
	ratingBefore := make(map[string]int)
	for rows.Next() {
		var s Standing
		var before int
		if err := rows.Scan(&s.UserID, &s.Score, &before); err != nil {
			rows.Close()
			return nil, fmt.Errorf("rating: scan leaderboard row: %w", err)
		}
		standings = append(standings, s)
		ratingBefore[s.UserID] = before
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(standings) == 0 {
		return nil, ErrNoParticipants
	}

	ranks := AssignRanks(standings)

	// rating_before is the snapshot leaderboard.ProcessBatch took of each
	// user's rating at submission time, before this contest affected it.
	// Re-grading (triggered by the grading worker's reactivation/reset
	// rule) must read that stable snapshot rather than users.current_rating,
	// which this same function already mutated on the first pass — reading
	// the mutated value would feed a contest's own prior output back in as
	// its input and break idempotency.
	participants := make([]Participant, 0, len(standings))
	for _, s := range standings {
		var contestsPlayed int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(DISTINCT contest_id)
			FROM leaderboard_rows
			WHERE user_id = $1 AND contest_id != $2
		`, s.UserID, contestID).Scan(&contestsPlayed)
		if err != nil {
			return nil, fmt.Errorf("rating: count prior contests for %s: %w", s.UserID, err)
		}

		participants = append(participants, Participant{
			UserID:         s.UserID,
			CurrentRating:  ratingBefore[s.UserID],
			Rank:           ranks[s.UserID],
			ContestsPlayed: contestsPlayed,
		})
	}

	outcomes := UpdateRatings(participants)

	for _, o := range outcomes {
		rank := ranks[o.UserID]
		if _, err := tx.Exec(ctx, `
			UPDATE leaderboard_rows
			SET rank = $1, rating_after = $2, rating_delta = $3
			WHERE contest_id = $4 AND user_id = $5
		`, rank, o.RatingAfter, o.RatingDelta, contestID, o.UserID); err != nil {
			return nil, fmt.Errorf("rating: persist leaderboard row for %s: %w", o.UserID, err)
		}

		var maxRating int
		if err := tx.QueryRow(ctx, `SELECT max_rating FROM users WHERE id = $1`, o.UserID).Scan(&maxRating); err != nil {
			return nil, fmt.Errorf("rating: load max_rating for %s: %w", o.UserID, err)
		}
		if o.RatingAfter > maxRating {
			maxRating = o.RatingAfter
		}
		title := TitleForRating(maxRating)

		if _, err := tx.Exec(ctx, `
			UPDATE users
			SET current_rating = $1, max_rating = $2, title = $3
			WHERE id = $4
		`, o.RatingAfter, maxRating, title, o.UserID); err != nil {
			return nil, fmt.Errorf("rating: persist user %s: %w", o.UserID, err)
		}
	}

	return outcomes, nil
}
