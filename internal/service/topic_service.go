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

// TopicService manages topics. Topics have no owner, so only elevated
// principals pass the policy for create, update and delete.
type TopicService struct {
	topics repository.TopicRepository
	now    func() time.Time
}

type CreateTopicInput struct {
	Title       string
	Description string
}

type UpdateTopicInput struct {
	ID          uuid.UUID
	BodyID      uuid.UUID
	Title       string
	Description string
	Version     uint
}

func NewTopicService(topics repository.TopicRepository) *TopicService {
	return &TopicService{topics: topics, now: time.Now}
}

func (s *TopicService) List(ctx context.Context) ([]models.Topic, error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return nil, err
	}
	return emptyIfNil(topics), nil
}

func (s *TopicService) Get(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	return s.topics.GetByID(ctx, id)
}

func validateTopic(title, description string) error {
	if err := validation.ValidateRequiredText("Title", title, validation.MaxTitleLen); err != nil {
		return validationErr(err)
	}
	if len([]rune(description)) > validation.MaxDescriptionLen {
		return models.NewValidationError("Description too long (max 2000 characters)")
	}
	return nil
}

func (s *TopicService) Create(ctx context.Context, p policy.Principal, in CreateTopicInput) (topic *models.Topic, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "TopicService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	if err := authorize(ctx, p, "", policy.ActionCreate, "Topic"); err != nil {
		return nil, err
	}
	if err := validateTopic(in.Title, in.Description); err != nil {
		return nil, err
	}

	now := s.now()
	topic = &models.Topic{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.topics.Create(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *TopicService) Update(ctx context.Context, p policy.Principal, in UpdateTopicInput) (topic *models.Topic, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "TopicService", "Update")
	defer func() { observability.EndSpan(span, err) }()

	if in.BodyID != in.ID {
		return nil, idMismatch()
	}
	topic, err = s.topics.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, p, "", policy.ActionUpdate, "Topic"); err != nil {
		return nil, err
	}
	if err := validateTopic(in.Title, in.Description); err != nil {
		return nil, err
	}

	expected := expectedVersion(in.Version, topic.Version)
	topic.Title = in.Title
	topic.Description = in.Description
	topic.UpdatedAt = nextUpdatedAt(s.now(), topic.UpdatedAt)

	if err := s.topics.Update(ctx, topic, expected); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, resolveConflict(ctx, "Topic", in.ID, func(ctx context.Context) (bool, error) {
				return s.topics.Exists(ctx, in.ID)
			})
		}
		return nil, err
	}
	return topic, nil
}

// Delete removes the topic together with its posts and their comments.
func (s *TopicService) Delete(ctx context.Context, p policy.Principal, id uuid.UUID) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "TopicService", "Delete")
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.topics.GetByID(ctx, id); err != nil {
		return err
	}
	if err := authorize(ctx, p, "", policy.ActionDelete, "Topic"); err != nil {
		return err
	}
	return s.topics.Delete(ctx, id)
}
