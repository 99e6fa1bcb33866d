// Command seed fills the forum database with generated demo data.
package main

import (
	"context"
	"flag"
	"log"

	"forum/internal/bootstrap"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numTopics := flag.Int("topics", 8, "Number of generated topics")
	postsPerTopic := flag.Int("posts", 10, "Posts per topic")
	commentsPerPost := flag.Int("comments", 4, "Maximum comments per post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	presetPath := flag.String("preset", "", "YAML file with fixed topics to create first")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one from the clock")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer database.Close(db)

	opts := seed.Options{
		NumUsers:        *numUsers,
		NumTopics:       *numTopics,
		PostsPerTopic:   *postsPerTopic,
		CommentsPerPost: *commentsPerPost,
		ShouldClean:     *shouldClean,
		Seed:            *randSeed,
	}
	if *presetPath != "" {
		preset, err := seed.LoadPreset(*presetPath)
		if err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
		opts.Preset = preset
	}

	summary, err := seed.Seed(ctx, db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users, %d topics, %d posts, %d comments",
		summary.Users, summary.Topics, summary.Posts, summary.Comments)
	log.Printf("All generated users have the password: %s", seed.DefaultPassword)
}
