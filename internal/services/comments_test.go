package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentListPageOrderingAndMetadata(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()

	author := createTestUser(t, db, "tex")

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	for i := 1; i <= 8; i++ {
		_, err := svc.Create(ctx, author, fmt.Sprintf("comment %d", i))
		require.NoError(t, err)
		current = current.Add(time.Minute)
	}

	page, err := svc.ListPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, page.TotalComments)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.False(t, page.HasPrev)
	assert.True(t, page.HasNext)
	assert.Equal(t, 2, page.NextPage)

	require.Len(t, page.Comments, CommentsPerPage)
	assert.Equal(t, "comment 8", page.Comments[0].Text, "newest first")
	assert.Equal(t, "comment 3", page.Comments[5].Text)
	assert.Equal(t, "tex", page.Comments[0].Author)
	assert.Equal(t, "Mar 1, 12:07 PM", page.Comments[0].Timestamp)

	page, err = svc.ListPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	assert.Equal(t, "comment 2", page.Comments[0].Text)
	assert.Equal(t, "comment 1", page.Comments[1].Text)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
}

func TestCommentListPageClamping(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()

	author := createTestUser(t, db, "tex")
	for i := 0; i < 7; i++ {
		_, err := svc.Create(ctx, author, "howdy")
		require.NoError(t, err)
	}

	// Past the end lands on the last page, not an empty one.
	page, err := svc.ListPage(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Comments, 1)

	// Zero and negative pages read as the first.
	for _, p := range []int{0, -3} {
		page, err = svc.ListPage(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
	}
}

func TestCommentListPageEmptyBoard(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommentService(db)

	page, err := svc.ListPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalComments)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Empty(t, page.Comments)
	assert.False(t, page.HasPrev)
	assert.False(t, page.HasNext)
}

func TestCommentRecentByUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommentService(db)
	ctx := context.Background()

	tex := createTestUser(t, db, "tex")
	other := createTestUser(t, db, "other")

	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	for i := 1; i <= 12; i++ {
		_, err := svc.Create(ctx, tex, fmt.Sprintf("tex %d", i))
		require.NoError(t, err)
		current = current.Add(time.Minute)
	}
	_, err := svc.Create(ctx, other, "not tex")
	require.NoError(t, err)

	comments, err := svc.RecentByUser(ctx, tex, 0)
	require.NoError(t, err)
	require.Len(t, comments, 10, "default limit")
	assert.Equal(t, "tex 12", comments[0].Text)
	for _, c := range comments {
		assert.Equal(t, tex.String(), c.UserID)
	}
}

func TestChatMessageStoreRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewChatMessageStore(db)
	ctx := context.Background()

	tex := createTestUser(t, db, "tex")
	base := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Save(ctx, tex, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	msgs, err := store.Recent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// Oldest first for rendering.
	assert.Equal(t, "message 0", msgs[0].Message)
	assert.Equal(t, "message 2", msgs[2].Message)
	assert.Equal(t, "tex", msgs[0].Username)
	assert.Equal(t, "06:30 PM", msgs[0].FormattedTime)
}

func TestChatMessageStoreRecentKeepsLatest(t *testing.T) {
	db := newTestDB(t)
	store := NewChatMessageStore(db)
	ctx := context.Background()

	tex := createTestUser(t, db, "tex")
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		err := store.Save(ctx, tex, fmt.Sprintf("message %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	msgs, err := store.Recent(ctx, ChatHistoryLimit)
	require.NoError(t, err)
	require.Len(t, msgs, ChatHistoryLimit)
	assert.Equal(t, "message 10", msgs[0].Message, "oldest kept message")
	assert.Equal(t, "message 59", msgs[len(msgs)-1].Message)
}

func TestChatMessageStoreTiesBreakOnInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	store := NewChatMessageStore(db)
	ctx := context.Background()

	tex := createTestUser(t, db, "tex")
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, tex, "first", at))
	require.NoError(t, store.Save(ctx, tex, "second", at))

	msgs, err := store.Recent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
}
