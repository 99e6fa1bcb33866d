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

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	now      func() time.Time
}

type CreateCommentInput struct {
	AuthorID string
	PostID   uuid.UUID
	Content  string
}

type UpdateCommentInput struct {
	ID      uuid.UUID
	BodyID  uuid.UUID
	Content string
	Version uint
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		now:      time.Now,
	}
}

func (s *CommentService) List(ctx context.Context) ([]models.Comment, error) {
	comments, err := s.comments.List(ctx)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(comments), nil
}

func (s *CommentService) ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(comments), nil
}

func (s *CommentService) Get(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	return s.comments.GetByID(ctx, id)
}

func validateComment(content string) error {
	return validationErr(validation.ValidateRequiredText("Content", content, validation.MaxCommentLen))
}

func (s *CommentService) Create(ctx context.Context, p policy.Principal, in CreateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	if err := validateComment(in.Content); err != nil {
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
	ok, err = s.posts.Exists(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}

	if err := authorize(ctx, p, authorID, policy.ActionCreate, "Comment"); err != nil {
		return nil, err
	}

	now := s.now()
	comment = &models.Comment{
		ID:        uuid.New(),
		Content:   in.Content,
		PostID:    in.PostID,
		AuthorID:  authorID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, p policy.Principal, in UpdateCommentInput) (comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Update")
	defer func() { observability.EndSpan(span, err) }()

	if in.BodyID != in.ID {
		return nil, idMismatch()
	}
	comment, err = s.comments.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, comment.AuthorID, policy.ActionUpdate, "Comment"); err != nil {
		return nil, err
	}
	if err := validateComment(in.Content); err != nil {
		return nil, err
	}

	expected := expectedVersion(in.Version, comment.Version)
	comment.Content = in.Content
	comment.UpdatedAt = nextUpdatedAt(s.now(), comment.UpdatedAt)

	if err := s.comments.Update(ctx, comment, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, resolveConflict(ctx, "Comment", in.ID, func(ctx context.Context) (bool, error) {
				return s.comments.Exists(ctx, in.ID)
			})
		}
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Delete")
	defer func() { observability.EndSpan(span, err) }()

	comment, err = s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, comment.AuthorID, policy.ActionDelete, "Comment"); err != nil {
		return nil, err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return nil, err
	}
	return comment, nil
}
