package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"sociable/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Fixture is a hand-written data set, usually loaded from seed.yml.
type Fixture struct {
	HashTags []string      `yaml:"hashtags"`
	Users    []FixtureUser `yaml:"users"`
}

type FixtureUser struct {
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Staff    bool          `yaml:"staff"`
	Username string        `yaml:"username"`
	Bio      string        `yaml:"bio"`
	Follows  []string      `yaml:"follows"`
	Posts    []FixturePost `yaml:"posts"`
}

type FixturePost struct {
	Title    string   `yaml:"title"`
	Text     string   `yaml:"text"`
	HashTags []string `yaml:"hashtags"`
	Comments []string `yaml:"comments"`
	// LikedBy lists user emails.
	LikedBy []string `yaml:"liked_by"`
}

// LoadFixture reads and parses a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(raw)
}

func ParseFixture(raw []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	seen := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			return nil, fmt.Errorf("fixture user %d has no email", i)
		}
		if seen[email] {
			return nil, fmt.Errorf("fixture user %s listed twice", email)
		}
		seen[email] = true
		fx.Users[i].Email = email
	}
	return &fx, nil
}

// ApplyFixture inserts fx in one transaction. Follows, comments and likes
// may reference any user of the fixture by email.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) (Summary, error) {
	var sum Summary
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := make(map[string]uint, len(fx.HashTags))
		for _, name := range fx.HashTags {
			tag := models.HashTag{Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return fmt.Errorf("create hashtag %s: %w", name, err)
			}
			tags[name] = tag.ID
			sum.HashTags++
		}

		users := make(map[string]uint, len(fx.Users))
		for _, fu := range fx.Users {
			password := fu.Password
			if password == "" {
				password = DefaultPassword
			}
			hashed, err := s.passwordHash(password)
			if err != nil {
				return err
			}
			user := models.User{Email: fu.Email, Password: hashed, IsStaff: fu.Staff, IsActive: true}
			if err := tx.Omit("Profile").Create(&user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", fu.Email, err)
			}
			users[fu.Email] = user.ID
			sum.Users++

			if fu.Username != "" {
				if err := tx.Create(&models.Profile{UserID: user.ID, Username: fu.Username, Bio: fu.Bio}).Error; err != nil {
					return fmt.Errorf("create profile %s: %w", fu.Username, err)
				}
				sum.Profiles++
			}
		}

		lookup := func(email string) (uint, error) {
			id, ok := users[strings.ToLower(email)]
			if !ok {
				return 0, fmt.Errorf("fixture references unknown user %s", email)
			}
			return id, nil
		}

		for _, fu := range fx.Users {
			userID := users[fu.Email]
			for _, email := range fu.Follows {
				followee, err := lookup(email)
				if err != nil {
					return err
				}
				if err := tx.Omit("Follower", "Followee").Create(&models.Follow{FollowerID: userID, FolloweeID: followee}).Error; err != nil {
					return fmt.Errorf("create follow %s -> %s: %w", fu.Email, email, err)
				}
				sum.Follows++
			}

			for _, fp := range fu.Posts {
				post := models.Post{UserID: userID, Title: fp.Title, Text: fp.Text}
				if err := tx.Omit("User", "HashTags", "Comments", "Likes").Create(&post).Error; err != nil {
					return fmt.Errorf("create post %q: %w", fp.Title, err)
				}
				sum.Posts++
				for _, name := range fp.HashTags {
					tagID, ok := tags[name]
					if !ok {
						return fmt.Errorf("post %q references unknown hashtag %s", fp.Title, name)
					}
					if err := tx.Exec("INSERT INTO post_hashtags (post_id, hashtag_id) VALUES (?, ?)", post.ID, tagID).Error; err != nil {
						return fmt.Errorf("tag post %q: %w", fp.Title, err)
					}
				}
				for _, text := range fp.Comments {
					comment := models.Comment{UserID: userID, PostID: post.ID, Text: text}
					if err := tx.Omit("User", "Post", "Likes").Create(&comment).Error; err != nil {
						return fmt.Errorf("comment on %q: %w", fp.Title, err)
					}
					sum.Comments++
				}
				for _, email := range fp.LikedBy {
					likerID, err := lookup(email)
					if err != nil {
						return err
					}
					postID := post.ID
					if err := tx.Omit("User", "Post", "Comment").Create(&models.Like{UserID: likerID, PostID: &postID}).Error; err != nil {
						return fmt.Errorf("like %q: %w", fp.Title, err)
					}
					sum.Likes++
				}
			}
		}
		return nil
	})
	return sum, err
}
