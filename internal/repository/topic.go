package repository

import (
	"context"

	"forum/internal/models"
	"forum/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopicRepository defines persistence operations for topics.
type TopicRepository interface {
	List(ctx context.Context) ([]models.Topic, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, topic *models.Topic) error
	Update(ctx context.Context, topic *models.Topic, expectedVersion uint) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type topicRepository struct {
	db *gorm.DB
}

// NewTopicRepository returns a new TopicRepository implementation.
func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) List(ctx context.Context) ([]models.Topic, error) {
	defer observability.TrackQuery("list", "topics")()

	var topics []models.Topic
	if err := readDB(r.db).WithContext(ctx).Order("created_at ASC").Find(&topics).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return topics, nil
}

func (r *topicRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	var topic models.Topic
	if err := readDB(r.db).WithContext(ctx).Where("id = ?", id).First(&topic).Error; err != nil {
		return nil, notFoundOr(err, "Topic", id)
	}
	return &topic, nil
}

func (r *topicRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return exists(ctx, r.db, &models.Topic{}, id)
}

func (r *topicRepository) Create(ctx context.Context, topic *models.Topic) error {
	if err := r.db.WithContext(ctx).Create(topic).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *topicRepository) Update(ctx context.Context, topic *models.Topic, expectedVersion uint) error {
	err := updateVersioned(ctx, r.db, &models.Topic{}, topic.ID, expectedVersion, topic.UpdatedAt, map[string]interface{}{
		"title":       topic.Title,
		"description": topic.Description,
	})
	if err != nil {
		return err
	}
	topic.Version = expectedVersion + 1
	return nil
}

// Delete removes the topic with its posts and their comments.
func (r *topicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		postIDs := tx.Model(&models.Post{}).Select("id").Where("topic_id = ?", id)
		if err := tx.Where("post_id IN (?)", postIDs).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("topic_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Topic{})
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Topic", id)
		}
		return nil
	})
}
