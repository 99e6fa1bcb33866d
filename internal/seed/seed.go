package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"forum/internal/auth"
	"forum/internal/models"
	"forum/internal/repository"

	"gorm.io/gorm"
)

// DefaultPassword is shared by every generated account.
const DefaultPassword = "SeedPassword12!@"

// Options configure the seeder.
type Options struct {
	NumUsers        int
	NumTopics       int
	PostsPerTopic   int
	CommentsPerPost int
	ShouldClean     bool
	// Preset, when set, contributes fixed topics in addition to NumTopics.
	Preset *Preset
	// Seed makes the generated content repeatable; zero uses the clock.
	Seed int64
}

// Summary counts what Seed created.
type Summary struct {
	Users    int
	Topics   int
	Posts    int
	Comments int
}

// Seed populates the database with demo data. One in ten generated users is
// a moderator.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("Starting database seeding: %d users, %d topics", opts.NumUsers, opts.NumTopics)

	if opts.ShouldClean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	roles := repository.NewRoleRepository(db)
	userRole, err := roles.Ensure(ctx, models.RoleUser)
	if err != nil {
		return nil, err
	}
	modRole, err := roles.Ensure(ctx, models.RoleModerator)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := NewFactory(db, seed, hash)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		granted := []models.Role{*userRole}
		if i%10 == 9 {
			granted = append(granted, *modRole)
		}
		u, err := f.CreateUser(ctx, granted...)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	summary.Users = len(users)

	var topics []*models.Topic
	if opts.Preset != nil {
		preset, err := f.ApplyPreset(ctx, opts.Preset)
		if err != nil {
			return nil, err
		}
		topics = append(topics, preset...)
	}
	for i := 0; i < opts.NumTopics; i++ {
		t, err := f.CreateTopic(ctx)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	summary.Topics = len(topics)

	if len(users) == 0 {
		log.Printf("Seeding finished without users; skipping posts and comments")
		return summary, nil
	}

	var posts []*models.Post
	for _, t := range topics {
		for i := 0; i < opts.PostsPerTopic; i++ {
			posts = append(posts, f.BuildPost(Pick(f, users), t))
		}
	}
	if err := f.CreatePostsBatch(ctx, posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	summary.Posts = len(posts)

	var comments []*models.Comment
	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			c := f.BuildComment(Pick(f, users), p)
			if c.CreatedAt.Before(p.CreatedAt) {
				c.CreatedAt, c.UpdatedAt = p.CreatedAt, p.CreatedAt
			}
			comments = append(comments, c)
		}
	}
	if err := f.CreateCommentsBatch(ctx, comments); err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}
	summary.Comments = len(comments)

	log.Printf("Seeding completed: %+v", *summary)
	return summary, nil
}

// clearData removes forum content and users. Role definitions are kept.
func clearData(ctx context.Context, db *gorm.DB) error {
	log.Println("Clearing existing data...")
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Comment{}, &models.Post{}, &models.Topic{}, &models.UserRole{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
