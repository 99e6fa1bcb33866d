// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"forum/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Factory builds forum entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	// hashed password shared by every generated user
	passwordHash string
	now          func() time.Time
	maxDays      int
}

// NewFactory creates a Factory bound to db. A fixed seed yields repeatable data.
func NewFactory(db *gorm.DB, seed int64, passwordHash string) *Factory {
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		passwordHash: passwordHash,
		now:          time.Now,
		maxDays:      90,
	}
}

// pastTime returns a timestamp spread over the last maxDays days.
func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.faker.Number(0, f.maxDays*24*60)) * time.Minute
	return f.now().Add(-back).UTC()
}

// BuildUser returns an unsaved user with a unique username and email.
func (f *Factory) BuildUser(roles ...models.Role) *models.User {
	first := strings.ToLower(f.faker.FirstName())
	suffix := f.faker.Number(1000, 999999)
	username := fmt.Sprintf("%s_%d", first, suffix)
	created := f.pastTime()
	return &models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     fmt.Sprintf("%s@example.com", username),
		Password:  f.passwordHash,
		Roles:     roles,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// BuildTopic returns an unsaved topic.
func (f *Factory) BuildTopic() *models.Topic {
	created := f.pastTime()
	return &models.Topic{
		ID:          uuid.New(),
		Title:       strings.TrimSuffix(f.faker.Sentence(3), "."),
		Description: f.faker.Sentence(12),
		Version:     1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

// BuildPost returns an unsaved post by author in topic.
func (f *Factory) BuildPost(author *models.User, topic *models.Topic) *models.Post {
	created := f.pastTime()
	return &models.Post{
		ID:        uuid.New(),
		Title:     strings.TrimSuffix(f.faker.Sentence(6), "."),
		Content:   f.faker.Paragraph(1, 3, 8, "\n\n"),
		AuthorID:  author.ID,
		TopicID:   topic.ID,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// BuildComment returns an unsaved comment by author on post.
func (f *Factory) BuildComment(author *models.User, post *models.Post) *models.Comment {
	created := f.pastTime()
	return &models.Comment{
		ID:        uuid.New(),
		Content:   f.faker.Sentence(f.faker.Number(4, 20)),
		PostID:    post.ID,
		AuthorID:  author.ID,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// CreateUser persists a generated user holding roles.
func (f *Factory) CreateUser(ctx context.Context, roles ...models.Role) (*models.User, error) {
	user := f.BuildUser(roles...)
	if err := f.db.WithContext(ctx).Omit("Roles.*").Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateTopic persists a generated topic, letting overrides adjust it first.
func (f *Factory) CreateTopic(ctx context.Context, overrides ...func(*models.Topic)) (*models.Topic, error) {
	topic := f.BuildTopic()
	for _, o := range overrides {
		o(topic)
	}
	if err := f.db.WithContext(ctx).Create(topic).Error; err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return topic, nil
}

// CreatePostsBatch persists posts in batches.
func (f *Factory) CreatePostsBatch(ctx context.Context, posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(posts, 100).Error
}

// CreateCommentsBatch persists comments in batches.
func (f *Factory) CreateCommentsBatch(ctx context.Context, comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return f.db.WithContext(ctx).CreateInBatches(comments, 200).Error
}

// Pick returns a random element of items.
func Pick[T any](f *Factory, items []T) T {
	return items[f.faker.Number(0, len(items)-1)]
}
