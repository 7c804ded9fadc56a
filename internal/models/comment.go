package models

import (
	"time"
)

// Comment is a board post joined with its author's display name. Votes is the
// denormalized score kept in sync with comment_user_votes.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"created_at"`
	Timestamp string    `json:"timestamp"` // formatted for rendering, e.g. "Jan 2, 03:04 PM"
}

// CommentPage is one page of the board plus pagination metadata for the view.
type CommentPage struct {
	Comments      []Comment `json:"comments"`
	Page          int       `json:"page"`
	TotalPages    int       `json:"total_pages"`
	TotalComments int       `json:"total_comments"`
	HasPrev       bool      `json:"has_prev"`
	HasNext       bool      `json:"has_next"`
	PrevPage      int       `json:"prev_page"`
	NextPage      int       `json:"next_page"`
}
