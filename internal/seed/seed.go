// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"sociable/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated user.
const DefaultPassword = "password123"

// Options configures a Seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	NumHashTags int
	// FollowsPerUser caps how many other users each user follows.
	FollowsPerUser int
	// SkipBcrypt stores a fixed non-verifiable hash; tests use it to stay fast.
	SkipBcrypt bool
	// RandSeed makes the generated data reproducible when non-zero.
	RandSeed int64
}

// Summary counts what a seeding run created.
type Summary struct {
	Users    int
	Profiles int
	HashTags int
	Follows  int
	Posts    int
	Comments int
	Likes    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d profiles, %d hashtags, %d follows, %d posts, %d comments, %d likes",
		s.Users, s.Profiles, s.HashTags, s.Follows, s.Posts, s.Comments, s.Likes)
}

// Seeder writes generated or fixture data straight through GORM.
type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(opts.RandSeed)}
}

// ClearAll deletes every row of every domain table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []string{"likes", "comments", "post_hashtags", "posts", "hashtags", "follows", "profiles", "users"}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Seeder) passwordHash(password string) (string, error) {
	if s.opts.SkipBcrypt {
		return "seed-" + password, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash seed password: %w", err)
	}
	return string(hashed), nil
}

// Seed generates users with profiles, hashtags, a follow mesh, posts, and
// comments and likes confined to each user's feed.
func (s *Seeder) Seed(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.createUsers(tx, s.opts.NumUsers)
		if err != nil {
			return err
		}
		sum.Users, sum.Profiles = len(users), len(users)

		tags, err := s.createHashTags(tx, s.opts.NumHashTags)
		if err != nil {
			return err
		}
		sum.HashTags = len(tags)

		following, err := s.createFollows(tx, users)
		if err != nil {
			return err
		}
		for _, followees := range following {
			sum.Follows += len(followees)
		}

		posts, err := s.createPosts(tx, users, tags, s.opts.NumPosts)
		if err != nil {
			return err
		}
		sum.Posts = len(posts)

		sum.Comments, sum.Likes, err = s.createEngagement(tx, users, following, posts)
		return err
	})
	return sum, err
}

func (s *Seeder) createUsers(tx *gorm.DB, count int) ([]models.User, error) {
	hashed, err := s.passwordHash(DefaultPassword)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, count)
	for i := range count {
		username := fmt.Sprintf("%s%d", strings.ToLower(s.faker.Username()), i)
		user := models.User{
			Email:    username + "@example.com",
			Password: hashed,
			IsActive: true,
		}
		if err := tx.Omit("Profile").Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", user.Email, err)
		}
		profile := models.Profile{UserID: user.ID, Username: username, Bio: s.faker.Sentence(8)}
		if err := tx.Create(&profile).Error; err != nil {
			return nil, fmt.Errorf("create profile %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createHashTags(tx *gorm.DB, count int) ([]models.HashTag, error) {
	tags := make([]models.HashTag, 0, count)
	for range count {
		tag := models.HashTag{Name: strings.ToLower(s.faker.HipsterWord())}
		if err := tx.Create(&tag).Error; err != nil {
			return nil, fmt.Errorf("create hashtag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// createFollows returns, per follower id, the ids it follows.
func (s *Seeder) createFollows(tx *gorm.DB, users []models.User) (map[uint][]uint, error) {
	following := make(map[uint][]uint, len(users))
	if len(users) < 2 {
		return following, nil
	}
	perUser := s.opts.FollowsPerUser
	if perUser <= 0 || perUser > len(users)-1 {
		perUser = min(3, len(users)-1)
	}
	for i, follower := range users {
		offsets := indexes(1, len(users))
		s.faker.ShuffleInts(offsets)
		for _, offset := range offsets[:perUser] {
			followee := users[(i+offset)%len(users)]
			if err := tx.Omit("Follower", "Followee").Create(&models.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).Error; err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			following[follower.ID] = append(following[follower.ID], followee.ID)
		}
	}
	return following, nil
}

func (s *Seeder) createPosts(tx *gorm.DB, users []models.User, tags []models.HashTag, count int) ([]models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]models.Post, 0, count)
	for i := range count {
		author := users[s.faker.Number(0, len(users)-1)]
		post := models.Post{
			UserID: author.ID,
			Title:  uniqueTitle(s.faker.Sentence(4), i),
			Text:   s.faker.Paragraph(1, 3, 10, " "),
		}
		if err := tx.Omit("User", "HashTags", "Comments", "Likes").Create(&post).Error; err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		if len(tags) > 0 {
			n := s.faker.Number(0, min(3, len(tags)))
			picks := indexes(0, len(tags))
			s.faker.ShuffleInts(picks)
			for _, idx := range picks[:n] {
				if err := tx.Exec("INSERT INTO post_hashtags (post_id, hashtag_id) VALUES (?, ?)", post.ID, tags[idx].ID).Error; err != nil {
					return nil, fmt.Errorf("tag post: %w", err)
				}
			}
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// createEngagement adds comments and likes only on posts in the actor's feed.
func (s *Seeder) createEngagement(tx *gorm.DB, users []models.User, following map[uint][]uint, posts []models.Post) (int, int, error) {
	byAuthor := make(map[uint][]models.Post)
	for _, p := range posts {
		byAuthor[p.UserID] = append(byAuthor[p.UserID], p)
	}

	comments, likes := 0, 0
	for _, u := range users {
		var feed []models.Post
		feed = append(feed, byAuthor[u.ID]...)
		for _, followee := range following[u.ID] {
			feed = append(feed, byAuthor[followee]...)
		}
		for _, p := range feed {
			if s.faker.Bool() {
				comment := models.Comment{UserID: u.ID, PostID: p.ID, Text: s.faker.Sentence(10)}
				if err := tx.Omit("User", "Post", "Likes").Create(&comment).Error; err != nil {
					return 0, 0, fmt.Errorf("create comment: %w", err)
				}
				comments++
			}
			if s.faker.Bool() {
				postID := p.ID
				if err := tx.Omit("User", "Post", "Comment").Create(&models.Like{UserID: u.ID, PostID: &postID}).Error; err != nil {
					return 0, 0, fmt.Errorf("create like: %w", err)
				}
				likes++
			}
		}
	}
	return comments, likes, nil
}

// uniqueTitle fits a generated sentence into the title column and keeps it
// distinct with the sequence number.
func uniqueTitle(sentence string, seq int) string {
	suffix := fmt.Sprintf(" #%d", seq+1)
	title := strings.TrimSuffix(sentence, ".")
	for utf8.RuneCountInString(title)+len(suffix) > models.MaxPostTitleLength {
		_, size := utf8.DecodeLastRuneInString(title)
		title = title[:len(title)-size]
	}
	return title + suffix
}

func indexes(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
