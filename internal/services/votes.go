package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// VoteService maintains the one-vote-per-(user, comment) ledger and the
// denormalized score on the comment row. Every mutation pairs the ledger
// write with the score delta inside a single transaction, so the score always
// equals the sum of the ledger.
type VoteService struct {
	db *sql.DB
}

func NewVoteService(db *sql.DB) *VoteService {
	return &VoteService{db: db}
}

// castAttempts bounds the insert-race/swap-race retry loop.
const castAttempts = 3

// CastVote records a +1/-1 vote and returns the new score.
//
// First vote inserts the ledger row and moves the score by value. Re-clicking
// the same value is a no-op. Casting the opposite value swaps the row and
// moves the score by 2*value. Losing the insert race to the unique
// constraint, or the swap race to a concurrent writer, retries as the
// appropriate case instead of failing.
func (v *VoteService) CastVote(ctx context.Context, userID uuid.UUID, commentID int64, value int) (int, error) {
	if value != 1 && value != -1 {
		return 0, fmt.Errorf("%w: vote must be 1 or -1", ErrInvalidInput)
	}

	for attempt := 0; attempt < castAttempts; attempt++ {
		score, retry, err := v.castVoteOnce(ctx, userID, commentID, value)
		if err == nil {
			return score, nil
		}
		if !retry {
			return 0, err
		}
	}
	return 0, fmt.Errorf("vote on comment %d did not settle", commentID)
}

func (v *VoteService) castVoteOnce(ctx context.Context, userID uuid.UUID, commentID int64, value int) (score int, retry bool, err error) {
	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx, `SELECT votes FROM comments WHERE id = $1`, commentID).Scan(&current)
	if err == sql.ErrNoRows {
		return 0, false, ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load comment: %w", err)
	}

	var delta int
	var existing int
	err = tx.QueryRowContext(ctx, `
		SELECT vote FROM comment_user_votes WHERE user_id = $1 AND comment_id = $2
	`, userID.String(), commentID).Scan(&existing)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO comment_user_votes (user_id, comment_id, vote)
			VALUES ($1, $2, $3)
		`, userID.String(), commentID, value)
		if err != nil {
			if isUniqueViolation(err) {
				// Lost the race to a concurrent first vote by the same user;
				// rerun and handle it as the no-op or swap case.
				return 0, true, err
			}
			return 0, false, fmt.Errorf("failed to insert vote: %w", err)
		}
		delta = value

	case err != nil:
		return 0, false, fmt.Errorf("failed to read vote: %w", err)

	case existing == value:
		// Idempotent re-click: ledger row and score both unchanged.
		return current, false, nil

	default:
		// Swap: compare-and-set on the old value so a concurrent swap can
		// never double-apply the 2*value delta.
		res, uerr := tx.ExecContext(ctx, `
			UPDATE comment_user_votes SET vote = $1
			WHERE user_id = $2 AND comment_id = $3 AND vote = $4
		`, value, userID.String(), commentID, existing)
		if uerr != nil {
			return 0, false, fmt.Errorf("failed to swap vote: %w", uerr)
		}
		n, uerr := res.RowsAffected()
		if uerr != nil {
			return 0, false, fmt.Errorf("failed to swap vote: %w", uerr)
		}
		if n == 0 {
			return 0, true, fmt.Errorf("vote row changed underneath swap")
		}
		delta = 2 * value
	}

	err = tx.QueryRowContext(ctx, `
		UPDATE comments SET votes = votes + $1 WHERE id = $2 RETURNING votes
	`, delta, commentID).Scan(&score)
	if err != nil {
		return 0, false, fmt.Errorf("failed to update score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit vote: %w", err)
	}
	return score, false, nil
}
