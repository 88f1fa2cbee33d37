// Command main runs the database seeder for yatube.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	maxComments := flag.Int("comments", 3, "Maximum comments per post")
	follows := flag.Int("follows", 5, "Authors each user follows")
	maxDays := flag.Int("days", 90, "Spread publication dates over this many days")
	randSeed := flag.Int64("rand-seed", 0, "Seed for reproducible content (0 picks one)")
	shouldClean := flag.Bool("clean", false, "Clean database before seeding")
	groupsOnly := flag.Bool("groups-only", false, "Only create the built-in groups")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	ctx := context.Background()

	if *groupsOnly {
		groups, err := seed.Groups(ctx, db)
		if err != nil {
			log.Fatalf("❌ Built-in group seeding failed: %v", err)
		}
		log.Printf("✨ %d built-in groups ensured", len(groups))
		return
	}

	log.Printf("Target: %d users, %d posts, clean=%v", *numUsers, *numPosts, *shouldClean)
	s, err := seed.NewSeeder(db, seed.Options{
		NumUsers:       *numUsers,
		NumPosts:       *numPosts,
		MaxComments:    *maxComments,
		FollowsPerUser: *follows,
		ShouldClean:    *shouldClean,
		MaxDays:        *maxDays,
		RandSeed:       *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeder setup failed: %v", err)
	}

	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! users=%d groups=%d posts=%d comments=%d follows=%d",
		res.Users, res.Groups, res.Posts, res.Comments, res.Follows)
	log.Printf("📧 All generated users have the password: %s", seed.DemoPassword)
}
