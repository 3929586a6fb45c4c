package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sh1zzle/activetime-project/internal"
	"github.com/sh1zzle/activetime-project/internal/auth"
	"github.com/sh1zzle/activetime-project/internal/storage"
)

var ErrEmailTaken = errors.New("user already exists")

type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenIssuer interface {
	Issue(user *internal.User) (string, error)
}

func ValidateSignupRequest(req *SignupRequest) error {
	return validate.Struct(req)
}

func ValidateLoginRequest(req *LoginRequest) error {
	return validate.Struct(req)
}

func Signup(ctx context.Context, users storage.UserRepository, req *SignupRequest) (*internal.User, error) {
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &internal.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

// Login checks the credentials and returns a signed session token.
func Login(ctx context.Context, users storage.UserRepository, issuer TokenIssuer, req *LoginRequest) (string, *internal.User, error) {
	user, err := users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil, auth.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return "", nil, auth.ErrInvalidCredentials
	}
	token, err := issuer.Issue(user)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, user, nil
}
