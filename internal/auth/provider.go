package auth

import (
	"context"
	"errors"

	"github.com/sh1zzle/activetime-project/internal"
)

var (
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// Provider resolves a bearer token to the user it was issued for.
type Provider interface {
	Authenticate(ctx context.Context, token string) (*internal.User, error)
}

// Chain tries each provider in order and returns the first success.
type Chain []Provider

func (c Chain) Authenticate(ctx context.Context, token string) (*internal.User, error) {
	for _, p := range c {
		if u, err := p.Authenticate(ctx, token); err == nil {
			return u, nil
		}
	}
	return nil, ErrInvalidToken
}
