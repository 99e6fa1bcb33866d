package repository

import (
	"context"
	"testing"
	"time"

	"forum/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTopic(t *testing.T, db *gorm.DB, title string) *models.Topic {
	t.Helper()
	now := time.Now().UTC()
	topic := &models.Topic{Title: title, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewTopicRepository(db).Create(context.Background(), topic))
	return topic
}

func createPost(t *testing.T, db *gorm.DB, authorID string, topicID uuid.UUID, title string) *models.Post {
	t.Helper()
	now := time.Now().UTC()
	post := &models.Post{Title: title, Content: "body", AuthorID: authorID, TopicID: topicID, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewPostRepository(db).Create(context.Background(), post))
	return post
}

func createComment(t *testing.T, db *gorm.DB, authorID string, postID uuid.UUID) *models.Comment {
	t.Helper()
	now := time.Now().UTC()
	c := &models.Comment{Content: "reply", AuthorID: authorID, PostID: postID, Version: 1, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewCommentRepository(db).Create(context.Background(), c))
	return c
}

func TestPostRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	topic := createTopic(t, db, "General")
	other := createTopic(t, db, "Other")

	p1 := createPost(t, db, author.ID, topic.ID, "first")
	createPost(t, db, author.ID, topic.ID, "second")
	createPost(t, db, author.ID, other.ID, "elsewhere")
	assert.NotEqual(t, uuid.Nil, p1.ID)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	inTopic, err := repo.ListByTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, inTopic, 2)

	none, err := repo.ListByTopic(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)

	got, err := repo.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, author.ID, got.AuthorID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_UpdateVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	topic := createTopic(t, db, "General")
	p := createPost(t, db, author.ID, topic.ID, "first")
	created := p.CreatedAt

	p.Title = "edited"
	p.UpdatedAt = created.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, p, 1))
	assert.Equal(t, uint(2), p.Version)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Title)
	assert.Equal(t, uint(2), got.Version)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	p.Title = "stale write"
	assert.ErrorIs(t, repo.Update(ctx, p, 1), ErrVersionConflict)

	ghost := &models.Post{ID: uuid.New(), Title: "x", UpdatedAt: time.Now()}
	assert.ErrorIs(t, repo.Update(ctx, ghost, 1), ErrVersionConflict)
}

func TestPostRepository_DeleteCascadesComments(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	topic := createTopic(t, db, "General")
	p := createPost(t, db, author.ID, topic.ID, "first")
	c := createComment(t, db, author.ID, p.ID)

	require.NoError(t, repo.Delete(ctx, p.ID))

	ok, err := repo.Exists(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = NewCommentRepository(db).Exists(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = repo.Delete(ctx, p.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
