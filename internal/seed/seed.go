package seed

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// MaxComments is the upper bound of comments per post.
	MaxComments int
	// FollowsPerUser is how many authors each user follows.
	FollowsPerUser int
	ShouldClean    bool
	// MaxDays bounds how far back publication dates go. Defaults to 90.
	MaxDays int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
	// FastHash hashes the demo password with the minimum bcrypt cost.
	FastHash bool
}

// Result counts what a seeding run created.
type Result struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seeder fills a database with demo content.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	factory, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, opts: opts, factory: factory}, nil
}

// ClearAll deletes every row of the domain tables, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	log.Println("🗑️  Clearing existing data...")
	tables := []any{
		&models.FollowEvent{},
		&models.Follow{},
		&models.Comment{},
		&models.Post{},
		&models.Group{},
		&models.User{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run seeds built-in groups, users, posts, comments and follows.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	log.Printf("🌱 Seeding %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return res, err
		}
	}

	groups, err := Groups(ctx, s.db)
	if err != nil {
		return res, err
	}
	res.Groups = len(groups)

	users := make([]*models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return res, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", res.Users)
	if len(users) == 0 {
		return res, nil
	}

	fake := s.factory.fake
	posts := make([]*models.Post, 0, s.opts.NumPosts)
	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[fake.Number(0, len(users)-1)]
		var group *models.Group
		// Roughly a third of posts are not filed under a group.
		if len(groups) > 0 && fake.Number(0, 2) > 0 {
			group = &groups[fake.Number(0, len(groups)-1)]
		}
		posts = append(posts, s.factory.BuildPost(author, group))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return res, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)
	log.Printf("✓ %d posts created", res.Posts)

	if s.opts.MaxComments > 0 {
		for _, post := range posts {
			for n := fake.Number(0, s.opts.MaxComments); n > 0; n-- {
				author := users[fake.Number(0, len(users)-1)]
				if _, err := s.factory.CreateComment(author, post); err != nil {
					return res, fmt.Errorf("failed to create comments: %w", err)
				}
				res.Comments++
			}
		}
		log.Printf("✓ %d comments created", res.Comments)
	}

	follows := s.opts.FollowsPerUser
	if follows > len(users)-1 {
		follows = len(users) - 1
	}
	for i, user := range users {
		if follows <= 0 {
			break
		}
		// Walk the ring of other users from a random offset so pairs never repeat.
		offset := fake.Number(1, len(users)-1)
		for k := 0; k < follows; k++ {
			author := users[(i+offset+k)%len(users)]
			if author.ID == user.ID {
				continue
			}
			if err := s.factory.CreateFollow(user, author); err != nil {
				return res, fmt.Errorf("failed to create follows: %w", err)
			}
			res.Follows++
		}
	}
	log.Printf("✓ %d follows created", res.Follows)

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}
