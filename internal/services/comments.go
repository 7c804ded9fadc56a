package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/frontier-forum/backend/internal/models"
)

// CommentsPerPage matches the original board's page size.
const CommentsPerPage = 6

// commentTimestampLayout is the display format the board renders, e.g.
// "Jan 2, 03:04 PM".
const commentTimestampLayout = "Jan 2, 03:04 PM"

// CommentService owns the comments table minus voting, which lives in
// VoteService.
type CommentService struct {
	db  *sql.DB
	now func() time.Time
}

func NewCommentService(db *sql.DB) *CommentService {
	return &CommentService{db: db, now: time.Now}
}

// Create appends a comment authored by userID.
func (s *CommentService) Create(ctx context.Context, userID uuid.UUID, text string) (int64, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, text, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, userID.String(), text, now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create comment: %w", err)
	}
	return id, nil
}

// ListPage returns one newest-first page of the board with pagination
// metadata. A page beyond the end is clamped to the last page.
func (s *CommentService) ListPage(ctx context.Context, page int) (*models.CommentPage, error) {
	if page < 1 {
		page = 1
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	totalPages := (total + CommentsPerPage - 1) / CommentsPerPage
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	offset := (page - 1) * CommentsPerPage

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, u.display_name, c.text, c.votes, c.created_at
		FROM comments c
		JOIN users u ON c.user_id = u.id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $1 OFFSET $2
	`, CommentsPerPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments, err := scanComments(rows)
	if err != nil {
		return nil, err
	}

	return &models.CommentPage{
		Comments:      comments,
		Page:          page,
		TotalPages:    totalPages,
		TotalComments: total,
		HasPrev:       page > 1,
		HasNext:       page < totalPages,
		PrevPage:      page - 1,
		NextPage:      page + 1,
	}, nil
}

// RecentByUser returns the author's latest comments for the profile page.
func (s *CommentService) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Comment, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.user_id, u.display_name, c.text, c.votes, c.created_at
		FROM comments c
		JOIN users u ON c.user_id = u.id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $2
	`, userID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

func scanComments(rows *sql.Rows) ([]models.Comment, error) {
	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.Author, &c.Text, &c.Votes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Timestamp = c.CreatedAt.Format(commentTimestampLayout)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}
