package service

import (
	"context"
	"strings"

	"sociable/internal/cache"
	"sociable/internal/middleware"
	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/observability"
	"sociable/internal/repository"
)

// ProfileService manages profiles and the follow graph between their users.
type ProfileService struct {
	profileRepo repository.ProfileRepository
	followRepo  repository.FollowRepository
	cache       *cache.Store
	pictures    *PictureStore
	events      EventPublisher
	isStaff     StaffLookup
}

type CreateProfileInput struct {
	Username string
	Bio      string
}

// UpdateProfileInput leaves nil fields unchanged.
type UpdateProfileInput struct {
	Username *string
	Bio      *string
}

func NewProfileService(
	profileRepo repository.ProfileRepository,
	followRepo repository.FollowRepository,
	store *cache.Store,
	pictures *PictureStore,
	events EventPublisher,
	isStaff StaffLookup,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		followRepo:  followRepo,
		cache:       store,
		pictures:    pictures,
		events:      publisherOrNoop(events),
		isStaff:     isStaff,
	}
}

func (s *ProfileService) view(ctx context.Context, p *models.Profile) (models.ProfileView, error) {
	followers, err := s.followRepo.FollowerEmails(ctx, p.UserID)
	if err != nil {
		return models.ProfileView{}, err
	}
	following, err := s.followRepo.FollowingEmails(ctx, p.UserID)
	if err != nil {
		return models.ProfileView{}, err
	}
	return models.NewProfileView(p, followers, following), nil
}

func (s *ProfileService) invalidate(ctx context.Context, profileIDs ...uint) {
	keys := make([]string, 0, len(profileIDs))
	for _, id := range profileIDs {
		keys = append(keys, cache.ProfileKey(id))
	}
	s.cache.Invalidate(ctx, keys...)
}

// CreateProfile gives userID its one profile.
func (s *ProfileService) CreateProfile(ctx context.Context, userID uint, in CreateProfileInput) (models.ProfileView, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return models.ProfileView{}, models.NewValidationError("Username is required")
	}
	exists, err := s.profileRepo.ExistsForUser(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}
	if exists {
		return models.ProfileView{}, models.NewValidationError("You already have a profile")
	}

	profile := &models.Profile{UserID: userID, Username: username, Bio: in.Bio}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return models.ProfileView{}, err
	}
	return s.view(ctx, profile)
}

// ListProfiles filters by a case-insensitive username substring.
func (s *ProfileService) ListProfiles(ctx context.Context, username string, page repository.Page) ([]models.ProfileView, int64, error) {
	profiles, count, err := s.profileRepo.List(ctx, username, page)
	if err != nil {
		return nil, 0, err
	}
	views := make([]models.ProfileView, 0, len(profiles))
	for _, p := range profiles {
		v, err := s.view(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		views = append(views, v)
	}
	return views, count, nil
}

// GetProfile reads the profile row through the cache. The follow lists are
// always read live so they agree with the follows table.
func (s *ProfileService) GetProfile(ctx context.Context, id uint) (models.ProfileView, error) {
	var p models.Profile
	err := s.cache.Aside(ctx, cache.ProfileKey(id), &p, cache.ProfileTTL, func() error {
		row, err := s.profileRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		p = *row
		return nil
	})
	if err != nil {
		return models.ProfileView{}, err
	}
	return s.view(ctx, &p)
}

// GetProfileByUser returns nil when userID has no profile.
func (s *ProfileService) GetProfileByUser(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

func (s *ProfileService) loadForWrite(ctx context.Context, actorID, id uint) (*models.Profile, error) {
	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnerOrStaff(ctx, s.isStaff, p.UserID, actorID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, actorID, id uint, in UpdateProfileInput) (models.ProfileView, error) {
	p, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return models.ProfileView{}, err
	}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return models.ProfileView{}, models.NewValidationError("Username is required")
		}
		p.Username = username
	}
	if in.Bio != nil {
		p.Bio = *in.Bio
	}
	if err := s.profileRepo.Update(ctx, p); err != nil {
		return models.ProfileView{}, err
	}
	s.invalidate(ctx, p.ID)
	return s.view(ctx, p)
}

// DeleteProfile removes the profile, its follow edges and its picture.
func (s *ProfileService) DeleteProfile(ctx context.Context, actorID, id uint) error {
	p, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return err
	}
	if err := s.profileRepo.Delete(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx, p.ID)
	s.pictures.Remove(p.Picture)
	return nil
}

// ToggleFollow makes actorID follow or unfollow the owner of profile id and
// returns models.FollowStatusFollow or models.FollowStatusUnfollow.
func (s *ProfileService) ToggleFollow(ctx context.Context, actorID, id uint) (string, error) {
	actorProfile, err := s.profileRepo.GetByUserID(ctx, actorID)
	if err != nil {
		return "", err
	}
	if actorProfile == nil {
		return "", models.NewValidationError(msgProfileToFollow)
	}
	target, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if target.UserID == actorID {
		return "", models.NewValidationError("You cannot follow yourself")
	}

	status, err := s.followRepo.Toggle(ctx, actorID, target.UserID)
	if err != nil {
		return "", err
	}
	observability.ToggleTotal.WithLabelValues("follow", status).Inc()
	middleware.Logger.InfoContext(ctx, "follow toggled", "profile_id", target.ID, "status", status)

	if status == models.FollowStatusFollow {
		s.events.Notify(ctx, target.UserID, notifications.Event{
			Type:     notifications.EventFollowed,
			ActorID:  actorID,
			ObjectID: actorProfile.ID,
		})
	}
	return status, nil
}

func (s *ProfileService) Followers(ctx context.Context, id uint) ([]string, error) {
	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.followRepo.FollowerEmails(ctx, p.UserID)
}

func (s *ProfileService) Following(ctx context.Context, id uint) ([]string, error) {
	p, err := s.profileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.followRepo.FollowingEmails(ctx, p.UserID)
}

// SetPicture replaces the profile picture with content, converted to webp.
func (s *ProfileService) SetPicture(ctx context.Context, actorID, id uint, content []byte) (models.ProfileView, error) {
	p, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return models.ProfileView{}, err
	}
	url, err := s.pictures.Save(p.Username, content)
	if err != nil {
		return models.ProfileView{}, err
	}

	previous := p.Picture
	p.Picture = url
	if err := s.profileRepo.Update(ctx, p); err != nil {
		s.pictures.Remove(url)
		return models.ProfileView{}, err
	}
	s.pictures.Remove(previous)
	s.invalidate(ctx, p.ID)
	return s.view(ctx, p)
}

// ClearPicture removes the profile picture.
func (s *ProfileService) ClearPicture(ctx context.Context, actorID, id uint) (models.ProfileView, error) {
	p, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return models.ProfileView{}, err
	}
	previous := p.Picture
	p.Picture = ""
	if err := s.profileRepo.Update(ctx, p); err != nil {
		return models.ProfileView{}, err
	}
	s.pictures.Remove(previous)
	s.invalidate(ctx, p.ID)
	return s.view(ctx, p)
}
