package auth

import (
	"context"

	"github.com/sh1zzle/activetime-project/internal"
)

// LocalAuthProvider accepts one fixed development token.
type LocalAuthProvider struct {
	Token  string
	User   internal.User
	logger internal.Logger
}

func (a *LocalAuthProvider) Authenticate(ctx context.Context, token string) (*internal.User, error) {
	if token != "" && token == a.Token {
		u := a.User
		return &u, nil
	}
	a.logger.Debugf("local auth rejected token")
	return nil, ErrInvalidToken
}

func NewLocalAuthProvider(token string, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{
		Token:  token,
		User:   internal.User{ID: "u1", Name: "Demo User", Email: "demo@example.com"},
		logger: logger,
	}
}
