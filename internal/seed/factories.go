// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every generated user.
const DemoPassword = "yatube-demo-123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db      *gorm.DB
	opts    Options
	fake    *gofakeit.Faker
	counter atomic.Uint64
	hash    string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
// A zero opts.RandSeed picks a random seed.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &Factory{
		db:   db,
		opts: opts,
		fake: gofakeit.New(opts.RandSeed),
		hash: string(hashed),
	}, nil
}

func (f *Factory) maxDays() int {
	if f.opts.MaxDays <= 0 {
		return 90
	}
	return f.opts.MaxDays
}

// pubDate spreads publication times over the last MaxDays.
func (f *Factory) pubDate() time.Time {
	now := time.Now()
	return f.fake.DateRange(now.AddDate(0, 0, -f.maxDays()), now)
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	n := f.counter.Add(1)
	first, last := f.fake.FirstName(), f.fake.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, n))
	user := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  f.hash,
		FirstName: first,
		LastName:  last,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post like CreatePost but does not persist it.
// Useful for batching.
func (f *Factory) BuildPost(author *models.User, group *models.Group, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Text:      f.fake.Paragraph(1, f.fake.Number(1, 4), f.fake.Number(6, 14), "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pubDate(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample post by author.
func (f *Factory) CreatePost(author *models.User, group *models.Group, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(author, group, overrides...)
	if err := f.db.Omit("Author", "Group").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Omit("Author", "Group").CreateInBatches(posts, 200).Error
}

// CreateComment constructs and persists a sample comment on post.
// The comment is dated after the post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	created := post.CreatedAt
	if now := time.Now(); created.Before(now) {
		created = f.fake.DateRange(created, now)
	}
	comment := &models.Comment{
		Text:      f.fake.Sentence(f.fake.Number(3, 12)),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: created,
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Omit("Author", "Post").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow persists a live follow of author by user. Existing pairs are
// left untouched.
func (f *Factory) CreateFollow(user, author *models.User) error {
	if user.ID == author.ID {
		return fmt.Errorf("user %d cannot follow themselves", user.ID)
	}
	follow := &models.Follow{UserID: user.ID, AuthorID: author.ID}
	return f.db.Omit("User", "Author").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error
}
