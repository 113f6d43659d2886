package service

import (
	"context"
	"sync"
	"testing"

	"sociable/internal/cache"
	"sociable/internal/config"
	"sociable/internal/notifications"
	"sociable/internal/repository"
	"sociable/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordedEvent struct {
	recipient uint
	event     notifications.Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Notify(_ context.Context, recipientID uint, ev notifications.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{recipient: recipientID, event: ev})
}

func (p *recordingPublisher) recorded() []recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedEvent(nil), p.events...)
}

type fixture struct {
	db        *gorm.DB
	redis     *miniredis.Miniredis
	events    *recordingPublisher
	uploadDir string

	users    *UserService
	profiles *ProfileService
	hashtags *HashTagService
	posts    *PostService
	comments *CommentService
	likes    *LikeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{UploadDir: t.TempDir(), ImageMaxUploadSizeMB: 1}
	store := cache.NewStore(rdb)
	pictures := NewPictureStore(cfg)
	events := &recordingPublisher{}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	users := NewUserService(userRepo, profileRepo, store, pictures, nil).WithBcryptCost(bcrypt.MinCost)
	users.isStaff = users.IsStaff

	return &fixture{
		db:        db,
		redis:     mr,
		events:    events,
		uploadDir: cfg.UploadDir,
		users:     users,
		profiles:  NewProfileService(profileRepo, followRepo, store, pictures, events, users.IsStaff),
		hashtags:  NewHashTagService(repository.NewHashTagRepository(db), store),
		posts:     NewPostService(postRepo, profileRepo, users.IsStaff),
		comments:  NewCommentService(commentRepo, postRepo, profileRepo, events, users.IsStaff),
		likes:     NewLikeService(repository.NewLikeRepository(db), postRepo, commentRepo, events),
	}
}
