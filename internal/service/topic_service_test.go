package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"forum/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicService_OnlyElevatedMayMutate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewTopicService(memTopics{store})
	svc.now = fixedClock(t0)

	_, err := svc.Create(ctx, principal("u1", models.RoleUser), CreateTopicInput{Title: "Go"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))
	assert.Empty(t, store.topics)

	topic, err := svc.Create(ctx, principal("m1", models.RoleModerator), CreateTopicInput{Title: "Go", Description: "gophers"})
	require.NoError(t, err)
	assert.True(t, topic.CreatedAt.Equal(topic.UpdatedAt))

	_, err = svc.Update(ctx, principal("u1", models.RoleUser), UpdateTopicInput{ID: topic.ID, BodyID: topic.ID, Title: "Rust"})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	svc.now = fixedClock(t0.Add(time.Minute))
	updated, err := svc.Update(ctx, principal("a1", models.RoleAdmin), UpdateTopicInput{ID: topic.ID, BodyID: topic.ID, Title: "Golang"})
	require.NoError(t, err)
	assert.Equal(t, "Golang", updated.Title)
	assert.Equal(t, uint(2), updated.Version)

	err = svc.Delete(ctx, principal("u1", models.RoleUser), topic.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, principal("a1", models.RoleAdmin), topic.ID))
	assert.Empty(t, store.topics)
}

func TestTopicService_Errors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	topic := store.addTopic()
	svc := NewTopicService(memTopics{store})
	admin := principal("a1", models.RoleAdmin)

	_, err := svc.Create(ctx, admin, CreateTopicInput{Title: " "})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Create(ctx, admin, CreateTopicInput{Title: "t", Description: strings.Repeat("d", 2001)})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Update(ctx, admin, UpdateTopicInput{ID: topic.ID, BodyID: uuid.New(), Title: "t"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	missing := uuid.New()
	_, err = svc.Update(ctx, admin, UpdateTopicInput{ID: missing, BodyID: missing, Title: "t"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	assert.True(t, models.HasCode(svc.Delete(ctx, admin, missing), models.CodeNotFound))
}

func TestTopicService_DeleteCascades(t *testing.T) {
	store := newMemStore()
	topic := store.addTopic()
	post := store.addPost("u1", topic.ID)
	store.addComment("u1", post.ID)
	other := store.addPost("u1", store.addTopic().ID)

	require.NoError(t, NewTopicService(memTopics{store}).Delete(context.Background(), principal("a1", models.RoleAdmin), topic.ID))
	assert.NotContains(t, store.posts, post.ID)
	assert.Contains(t, store.posts, other.ID)
	assert.Empty(t, store.comments)
}
