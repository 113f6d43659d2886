// Package service holds the application's business rules: access control,
// feed composition and the follow/like toggles. Every call carries the acting
// user's id explicitly.
package service

import (
	"context"

	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/repository"
)

// StaffLookup reports whether a user has staff rights.
type StaffLookup func(ctx context.Context, userID uint) (bool, error)

// EventPublisher delivers notification events. *notifications.Notifier
// implements it.
type EventPublisher interface {
	Notify(ctx context.Context, recipientID uint, ev notifications.Event)
}

type noopPublisher struct{}

func (noopPublisher) Notify(context.Context, uint, notifications.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// Messages shared by several services.
const (
	msgForbidden        = "You do not have permission to perform this action."
	msgProfileRequired  = "Create a profile before posting"
	msgProfileToFollow  = "Create a profile before following other users"
	msgPasswordRequired = "Password is required"
)

// ensureOwnerOrStaff allows the owner of an object and staff users.
func ensureOwnerOrStaff(ctx context.Context, isStaff StaffLookup, ownerID, actorID uint) error {
	if ownerID == actorID {
		return nil
	}
	if isStaff == nil {
		return models.NewForbiddenError(msgForbidden)
	}
	staff, err := isStaff(ctx, actorID)
	if err != nil {
		return err
	}
	if !staff {
		return models.NewForbiddenError(msgForbidden)
	}
	return nil
}

// ensureHasProfile fails with a validation error carrying msg when userID has
// no profile.
func ensureHasProfile(ctx context.Context, profiles repository.ProfileRepository, userID uint, msg string) error {
	ok, err := profiles.ExistsForUser(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError(msg)
	}
	return nil
}
