package validation

import (
	"strings"
	"testing"

	"sociable/internal/models"

	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"notblank,max=10"`
	Bio      *string `json:"bio" validate:"omitempty,max=5"`
	PostID   uint    `json:"post" validate:"gt=0"`
}

func TestStruct(t *testing.T) {
	long := "toolong"
	tests := []struct {
		name    string
		req     sampleRequest
		wantMsg string
	}{
		{"valid", sampleRequest{Email: "a@b.co", Username: "al", PostID: 1}, ""},
		{"missing email", sampleRequest{Username: "al", PostID: 1}, "email is required"},
		{"bad email", sampleRequest{Email: "nope", Username: "al", PostID: 1}, "email must be a valid email address"},
		{"blank username", sampleRequest{Email: "a@b.co", Username: "   ", PostID: 1}, "username is required"},
		{"long username", sampleRequest{Email: "a@b.co", Username: strings.Repeat("x", 11), PostID: 1}, "username must be at most 10 characters"},
		{"long bio", sampleRequest{Email: "a@b.co", Username: "al", Bio: &long, PostID: 1}, "bio must be at most 5 characters"},
		{"zero post", sampleRequest{Email: "a@b.co", Username: "al"}, "post must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "password123", false},
		{"Exactly Min Length", "abcdefgh", false},
		{"Too Short", "short12", true},
		{"Too Long", strings.Repeat("a", 129), true},
		{"Blank", "          ", true},
		{"Unicode Counts Runes", "ÅÅÅÅÅÅÅÅ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
