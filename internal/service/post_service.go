package service

import (
	"context"
	"errors"
	"time"

	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/policy"
	"forum/internal/repository"
	"forum/internal/validation"

	"github.com/google/uuid"
)

type PostService struct {
	posts  repository.PostRepository
	topics repository.TopicRepository
	users  repository.UserRepository
	now    func() time.Time
}

type CreatePostInput struct {
	// AuthorID defaults to the caller when empty.
	AuthorID string
	TopicID  uuid.UUID
	Title    string
	Content  string
}

type UpdatePostInput struct {
	ID      uuid.UUID
	BodyID  uuid.UUID
	Title   string
	Content string
	Version uint
}

func NewPostService(
	posts repository.PostRepository,
	topics repository.TopicRepository,
	users repository.UserRepository,
) *PostService {
	return &PostService{
		posts:  posts,
		topics: topics,
		users:  users,
		now:    time.Now,
	}
}

func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(posts), nil
}

// ListByTopic returns the topic's posts; an unknown topic yields an empty list.
func (s *PostService) ListByTopic(ctx context.Context, topicID uuid.UUID) ([]models.Post, error) {
	posts, err := s.posts.ListByTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(posts), nil
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func validatePost(title, content string) error {
	if err := validation.ValidateRequiredText("Title", title, validation.MaxTitleLen); err != nil {
		return validationErr(err)
	}
	if err := validation.ValidateRequiredText("Content", content, validation.MaxContentLen); err != nil {
		return validationErr(err)
	}
	return nil
}

// Create stores a new post. Author and topic must exist; posting on behalf of
// another user requires the policy to allow it.
func (s *PostService) Create(ctx context.Context, p policy.Principal, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	if err := validatePost(in.Title, in.Content); err != nil {
		return nil, err
	}

	authorID := in.AuthorID
	if authorID == "" {
		authorID = p.ID
	}

	ok, err := s.users.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("User", authorID)
	}
	ok, err = s.topics.Exists(ctx, in.TopicID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Topic", in.TopicID)
	}

	if err := authorize(ctx, p, authorID, policy.ActionCreate, "Post"); err != nil {
		return nil, err
	}

	now := s.now()
	post = &models.Post{
		ID:        uuid.New(),
		Title:     in.Title,
		Content:   in.Content,
		AuthorID:  authorID,
		TopicID:   in.TopicID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, p policy.Principal, in UpdatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Update")
	defer func() { observability.EndSpan(span, err) }()

	if in.BodyID != in.ID {
		return nil, idMismatch()
	}
	post, err = s.posts.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, post.AuthorID, policy.ActionUpdate, "Post"); err != nil {
		return nil, err
	}
	if err := validatePost(in.Title, in.Content); err != nil {
		return nil, err
	}

	expected := expectedVersion(in.Version, post.Version)
	post.Title = in.Title
	post.Content = in.Content
	post.UpdatedAt = nextUpdatedAt(s.now(), post.UpdatedAt)

	if err := s.posts.Update(ctx, post, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, resolveConflict(ctx, "Post", in.ID, func(ctx context.Context) (bool, error) {
				return s.posts.Exists(ctx, in.ID)
			})
		}
		return nil, err
	}
	return post, nil
}

// Delete removes the post and its comments.
func (s *PostService) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Delete")
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, post.AuthorID, policy.ActionDelete, "Post"); err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}
	return post, nil
}
