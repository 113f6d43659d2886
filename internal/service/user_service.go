package service

import (
	"context"

	"sociable/internal/cache"
	"sociable/internal/models"
	"sociable/internal/repository"
	"sociable/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// UserService manages accounts and credentials.
type UserService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	cache       *cache.Store
	pictures    *PictureStore
	isStaff     StaffLookup
	bcryptCost  int
}

// UpdateUserInput carries the fields of a partial account update.
type UpdateUserInput struct {
	Email    *string
	Password *string
}

func NewUserService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	store *cache.Store,
	pictures *PictureStore,
	isStaff StaffLookup,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		cache:       store,
		pictures:    pictures,
		isStaff:     isStaff,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

func (s *UserService) hash(password string) (string, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return "", models.NewValidationError(err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(hashed), nil
}

// Register creates an active, non-staff account.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if email == "" {
		return nil, models.NewValidationError("Email is required")
	}
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("A user with this email already exists")
	}

	hashed, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, Password: hashed, IsActive: true}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks credentials and returns the active user they belong to.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := models.NewUnauthorizedError("No active account found with the given credentials")
	if password == "" {
		return nil, models.NewValidationError(msgPasswordRequired)
	}
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, invalid
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// IsStaff implements StaffLookup. Unknown users are not staff.
func (s *UserService) IsStaff(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	return user.IsStaff, nil
}

// UpdateUser changes the caller's email and/or password.
func (s *UserService) UpdateUser(ctx context.Context, userID uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := validation.NormalizeEmail(*in.Email)
		if email == "" {
			return nil, models.NewValidationError("Email is required")
		}
		user.Email = email
	}
	if in.Password != nil {
		hashed, err := s.hash(*in.Password)
		if err != nil {
			return nil, err
		}
		user.Password = hashed
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes targetID and everything it owns. Users may delete
// themselves; staff may delete anyone.
func (s *UserService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if err := ensureOwnerOrStaff(ctx, s.isStaff, target.ID, actorID); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, target.ID); err != nil {
		return err
	}
	if target.Profile != nil {
		s.cache.Invalidate(ctx, cache.ProfileKey(target.Profile.ID))
		s.pictures.Remove(target.Profile.Picture)
	}
	return nil
}

// EnsureStaff creates email as a staff account, or promotes and resets the
// password of an existing one.
func (s *UserService) EnsureStaff(ctx context.Context, email, password string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		if user, err = s.Register(ctx, email, password); err != nil {
			return nil, err
		}
	} else {
		hashed, err := s.hash(password)
		if err != nil {
			return nil, err
		}
		user.Password, user.IsActive = hashed, true
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	if err := s.userRepo.SetStaff(ctx, user.ID, true); err != nil {
		return nil, err
	}
	user.IsStaff = true
	return user, nil
}
